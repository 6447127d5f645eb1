package field

import (
	"math"
	"testing"
)

func TestDistanceSquaredTo(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Pose
		expected float64
	}{
		{"same point", Pose{X: 3.95, Y: 2.81, Heading: 1.0}, Pose{X: 3.95, Y: 2.81, Heading: -2.0}, 0},
		{"unit x", Pose{}, Pose{X: 1}, 1},
		{"unit y", Pose{}, Pose{Y: 1}, 1},
		{"diagonal", Pose{X: 1, Y: 1}, Pose{}, 2},
		{"3-4-5 triangle", Pose{}, Pose{X: 3, Y: 4}, 25},
		{"heading ignored", Pose{Heading: 0}, Pose{Heading: math.Pi}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.DistanceSquaredTo(tt.b); got != tt.expected {
				t.Errorf("DistanceSquaredTo = %f, want %f", got, tt.expected)
			}
			// Distance is symmetric.
			if got := tt.b.DistanceSquaredTo(tt.a); got != tt.expected {
				t.Errorf("reversed DistanceSquaredTo = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestDistanceTo(t *testing.T) {
	a := Pose{X: 1, Y: 2}
	b := Pose{X: 4, Y: 6}
	if got := a.DistanceTo(b); math.Abs(got-5) > 1e-12 {
		t.Errorf("DistanceTo = %f, want 5", got)
	}
}

func TestOffsetAlongAxes(t *testing.T) {
	tests := []struct {
		name     string
		pose     Pose
		distance float64
		expected Pose
	}{
		{"forward along +x", Pose{X: 1, Y: 2, Heading: 0}, 2, Pose{X: 3, Y: 2, Heading: 0}},
		{"backward along +x", Pose{X: 1, Y: 2, Heading: 0}, -2, Pose{X: -1, Y: 2, Heading: 0}},
		{"forward along +y", Pose{X: 0, Y: 0, Heading: math.Pi / 2}, 1.5, Pose{X: 0, Y: 1.5, Heading: math.Pi / 2}},
		{"zero distance", Pose{X: 5.82, Y: 3.87, Heading: -3.1}, 0, Pose{X: 5.82, Y: 3.87, Heading: -3.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pose.Offset(tt.distance)
			if math.Abs(got.X-tt.expected.X) > 1e-12 || math.Abs(got.Y-tt.expected.Y) > 1e-12 {
				t.Errorf("Offset position = (%f, %f), want (%f, %f)", got.X, got.Y, tt.expected.X, tt.expected.Y)
			}
			if got.Heading != tt.expected.Heading {
				t.Errorf("Offset heading = %f, want %f", got.Heading, tt.expected.Heading)
			}
		})
	}
}

// Offsetting moves the pose by exactly |distance| meters and never touches
// the heading, for any heading.
func TestOffsetDisplacementMagnitude(t *testing.T) {
	headings := []float64{0, 0.4, 1.0406, -2.0478, math.Pi, -math.Pi, 7.5, -12.25}
	distances := []float64{-2.0, -0.7, -0.1, 0.35, 1.0, 4.2}

	for _, h := range headings {
		for _, d := range distances {
			p := Pose{X: 3.16, Y: 3.86, Heading: h}
			q := p.Offset(d)
			if q.Heading != h {
				t.Fatalf("Offset(%f) changed heading %f -> %f", d, h, q.Heading)
			}
			if got := p.DistanceTo(q); math.Abs(got-math.Abs(d)) > 1e-9 {
				t.Fatalf("Offset(%f) at heading %f moved %f meters, want %f", d, h, got, math.Abs(d))
			}
		}
	}
}

// Offsetting by d then -d returns to the start within float tolerance.
func TestOffsetRoundTrip(t *testing.T) {
	p := Pose{X: 14.38, Y: 4.16, Heading: 3.1191}
	for _, d := range []float64{-2.0, -0.7, 0.5, 3.25} {
		q := p.Offset(d).Offset(-d)
		if math.Abs(q.X-p.X) > 1e-9 || math.Abs(q.Y-p.Y) > 1e-9 || q.Heading != p.Heading {
			t.Errorf("Offset(%f) round trip = %v, want %v", d, q, p)
		}
	}
}

func TestOffsetNonFinitePropagates(t *testing.T) {
	if p := (Pose{X: math.NaN(), Y: 1, Heading: 0}).Offset(-2); !math.IsNaN(p.X) {
		t.Errorf("NaN X should propagate, got %v", p)
	}
	if p := (Pose{X: 1, Y: 1, Heading: math.NaN()}).Offset(-2); !math.IsNaN(p.X) || !math.IsNaN(p.Y) {
		t.Errorf("NaN heading should poison both coordinates, got %v", p)
	}
	// cos/sin of Inf are NaN, so an Inf heading also poisons the position.
	if p := (Pose{Heading: math.Inf(1)}).Offset(1); !math.IsNaN(p.X) || !math.IsNaN(p.Y) {
		t.Errorf("Inf heading should poison both coordinates, got %v", p)
	}
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name     string
		pose     Pose
		expected bool
	}{
		{"zero pose", Pose{}, true},
		{"ordinary pose", Pose{X: 12.49, Y: 5.21, Heading: -0.9826}, true},
		{"nan x", Pose{X: math.NaN()}, false},
		{"nan y", Pose{Y: math.NaN()}, false},
		{"nan heading", Pose{Heading: math.NaN()}, false},
		{"inf x", Pose{X: math.Inf(1)}, false},
		{"negative inf y", Pose{Y: math.Inf(-1)}, false},
		{"inf heading", Pose{Heading: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pose.IsFinite(); got != tt.expected {
				t.Errorf("IsFinite(%v) = %v, want %v", tt.pose, got, tt.expected)
			}
		})
	}
}

func TestString(t *testing.T) {
	p := Pose{X: 3.95, Y: 2.81, Heading: math.Pi / 2}
	got := p.String()
	want := "(3.950, 2.810, 90.00°)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	// Display wraps the heading; the offset math upstream never does.
	wound := Pose{X: 1, Y: 2, Heading: 2.5 * math.Pi}
	if got := wound.String(); got != "(1.000, 2.000, 90.00°)" {
		t.Errorf("String() = %q, want wrapped 90.00°", got)
	}
}

package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashgrove-robotics/fieldpose/internal/units"
)

func TestDefaultTables(t *testing.T) {
	tables := MustDefaultTables()

	if tables.Revision != "2025-rev2" {
		t.Errorf("Revision = %q, want \"2025-rev2\"", tables.Revision)
	}
	if len(tables.Blue) != 13 {
		t.Errorf("len(Blue) = %d, want 13", len(tables.Blue))
	}
	if len(tables.Red) != 12 {
		t.Errorf("len(Red) = %d, want 12", len(tables.Red))
	}

	// Spot-check the first blue entry: (3.95, 2.81) heading 59.62°.
	b0 := tables.Blue[0]
	if b0.X != 3.95 || b0.Y != 2.81 {
		t.Errorf("Blue[0] position = (%f, %f), want (3.95, 2.81)", b0.X, b0.Y)
	}
	if math.Abs(b0.Heading-units.DegToRad(59.62)) > 1e-12 {
		t.Errorf("Blue[0] heading = %f rad, want %f", b0.Heading, units.DegToRad(59.62))
	}

	// And the last red entry: (11.74, 3.90) heading -0.55°.
	r := tables.Red[len(tables.Red)-1]
	if r.X != 11.74 || r.Y != 3.9 {
		t.Errorf("Red[11] position = (%f, %f), want (11.74, 3.90)", r.X, r.Y)
	}
	if math.Abs(r.Heading-units.DegToRad(-0.55)) > 1e-12 {
		t.Errorf("Red[11] heading = %f rad, want %f", r.Heading, units.DegToRad(-0.55))
	}

	// Every entry must be finite.
	for i, p := range tables.Blue {
		if !p.IsFinite() {
			t.Errorf("Blue[%d] = %v is not finite", i, p)
		}
	}
	for i, p := range tables.Red {
		if !p.IsFinite() {
			t.Errorf("Red[%d] = %v is not finite", i, p)
		}
	}
}

func TestLoadTablesEmptyPathUsesDefaults(t *testing.T) {
	tables, err := LoadTables("")
	if err != nil {
		t.Fatalf("LoadTables(\"\") error: %v", err)
	}
	if len(tables.Blue) != 13 || len(tables.Red) != 12 {
		t.Errorf("default tables = %d blue, %d red; want 13, 12", len(tables.Blue), len(tables.Red))
	}
}

func TestLoadTablesFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tables.json")

	testJSON := `{
  "revision": "practice-field",
  "heading_unit": "rad",
  "blue": [{"x": 1.0, "y": 2.0, "heading": 1.5708}],
  "red": [{"x": 3.0, "y": 4.0, "heading": -0.5}]
}`
	if err := os.WriteFile(path, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write tables file: %v", err)
	}

	tables, err := LoadTablesFile(path)
	if err != nil {
		t.Fatalf("LoadTablesFile error: %v", err)
	}

	if tables.Revision != "practice-field" {
		t.Errorf("Revision = %q, want \"practice-field\"", tables.Revision)
	}
	if len(tables.Blue) != 1 || len(tables.Red) != 1 {
		t.Fatalf("tables = %d blue, %d red; want 1, 1", len(tables.Blue), len(tables.Red))
	}
	// Radians pass through without conversion.
	if tables.Blue[0].Heading != 1.5708 {
		t.Errorf("Blue[0] heading = %f, want 1.5708", tables.Blue[0].Heading)
	}
	if tables.Red[0].Heading != -0.5 {
		t.Errorf("Red[0] heading = %f, want -0.5", tables.Red[0].Heading)
	}
}

func TestLoadTablesFileDefaultsToDegrees(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tables.json")

	testJSON := `{
  "blue": [{"x": 0, "y": 0, "heading": 180}],
  "red": []
}`
	if err := os.WriteFile(path, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write tables file: %v", err)
	}

	tables, err := LoadTablesFile(path)
	if err != nil {
		t.Fatalf("LoadTablesFile error: %v", err)
	}
	if math.Abs(tables.Blue[0].Heading-math.Pi) > 1e-12 {
		t.Errorf("Blue[0] heading = %f, want pi", tables.Blue[0].Heading)
	}
}

func TestLoadTablesFileRejectsBadUnit(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tables.json")

	testJSON := `{"heading_unit": "grad", "blue": [], "red": []}`
	if err := os.WriteFile(path, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write tables file: %v", err)
	}

	if _, err := LoadTablesFile(path); err == nil {
		t.Error("Expected error for invalid heading_unit")
	}
}

func TestConvertPosesRejectsNonFinite(t *testing.T) {
	entries := []TablePose{
		{X: 1, Y: 2, Heading: 3},
		{X: math.NaN(), Y: 2, Heading: 3},
	}
	if _, err := convertPoses("blue", entries, units.Degrees); err == nil {
		t.Error("Expected error for NaN table entry")
	}

	entries = []TablePose{{X: 1, Y: math.Inf(-1), Heading: 0}}
	if _, err := convertPoses("red", entries, units.Radians); err == nil {
		t.Error("Expected error for Inf table entry")
	}
}

// Package field provides planar field-frame geometry for the pose
// matching engine. Positions are meters in the field coordinate frame;
// headings are radians, measured counterclockwise from the +X axis.
package field

import (
	"fmt"
	"math"

	"github.com/ashgrove-robotics/fieldpose/internal/units"
)

// Pose is a planar robot pose: position in meters and heading in radians.
//
// Pose is a plain value type. Methods never mutate the receiver, so poses
// can be shared across goroutines without synchronization.
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// DistanceSquaredTo returns the squared planar distance to other in square
// meters. Heading does not contribute. Squared distance preserves the
// ordering of true distances, so nearest-neighbor scans can skip the sqrt.
func (p Pose) DistanceSquaredTo(other Pose) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// DistanceTo returns the planar distance to other in meters.
func (p Pose) DistanceTo(other Pose) float64 {
	return math.Sqrt(p.DistanceSquaredTo(other))
}

// Offset returns the pose translated by distance meters along its own
// heading. Negative distances move backward along the heading. Heading is
// carried through unchanged, including values outside (-π, π].
func (p Pose) Offset(distance float64) Pose {
	return Pose{
		X:       p.X + distance*math.Cos(p.Heading),
		Y:       p.Y + distance*math.Sin(p.Heading),
		Heading: p.Heading,
	}
}

// IsFinite reports whether all three components are finite. Poses built
// from arithmetic on NaN or Inf inputs fail this check.
func (p Pose) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Heading) && !math.IsInf(p.Heading, 0)
}

// String formats the pose for logs, with the heading wrapped into (-π, π]
// and shown in degrees. The stored heading is not modified.
func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.2f°)", p.X, p.Y, units.RadToDeg(units.NormalizeRad(p.Heading)))
}

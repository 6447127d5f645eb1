// Package units provides shared constants and conversions for angle units
package units

import "math"

// Angle unit constants
const (
	Degrees = "deg"
	Radians = "rad"
)

// ValidAngleUnits contains all valid angle unit values
var ValidAngleUnits = []string{Degrees, Radians}

// IsValidAngleUnit checks if the given unit is in the list of valid units
func IsValidAngleUnit(unit string) bool {
	for _, validUnit := range ValidAngleUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidAngleUnitsString returns a comma-separated string of valid units for error messages
func GetValidAngleUnitsString() string {
	return "deg, rad"
}

// DegToRad converts an angle from degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts an angle from radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// ToRadians converts an angle in the given unit to radians.
// Pose tables historically carry headings in degrees, so unknown units
// are treated as degrees.
func ToRadians(value float64, unit string) float64 {
	switch unit {
	case Radians:
		return value
	case Degrees:
		return DegToRad(value)
	default:
		return DegToRad(value)
	}
}

// NormalizeRad wraps an angle into (-π, π]. Matching and offsetting never
// normalize headings; this is for display and angle comparison only.
// Non-finite values pass through unchanged.
func NormalizeRad(rad float64) float64 {
	if math.IsNaN(rad) || math.IsInf(rad, 0) {
		return rad
	}
	r := math.Mod(rad, 2*math.Pi)
	switch {
	case r > math.Pi:
		r -= 2 * math.Pi
	case r <= -math.Pi:
		r += 2 * math.Pi
	}
	return r
}

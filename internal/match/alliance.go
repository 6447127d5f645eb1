package match

import "strings"

// Alliance identifies which side's pose table a query runs against.
type Alliance string

const (
	// AllianceBlue selects the blue-side pose table.
	AllianceBlue Alliance = "blue"
	// AllianceRed selects the red-side pose table.
	AllianceRed Alliance = "red"
	// AllianceUnknown means the field management system has not reported a
	// side yet. Queries for it are answered from the fallback table.
	AllianceUnknown Alliance = "unknown"
)

// ParseAlliance maps a free-form alliance string to an Alliance. Leading
// and trailing whitespace and case are ignored; single-letter forms come
// from the driver station feed. Anything unrecognized maps to
// AllianceUnknown so a garbled feed degrades to the fallback table rather
// than stalling a match cycle.
func ParseAlliance(s string) Alliance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blue", "b":
		return AllianceBlue
	case "red", "r":
		return AllianceRed
	default:
		return AllianceUnknown
	}
}

// Known reports whether a names a concrete side rather than the unknown
// sentinel.
func (a Alliance) Known() bool {
	return a == AllianceBlue || a == AllianceRed
}

func (a Alliance) String() string {
	return string(a)
}

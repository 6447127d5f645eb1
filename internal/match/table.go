// Package match selects the nearest scoring pose for a robot and projects
// approach targets from it. Tables are immutable once built, so every type
// in this package is safe for concurrent use without locks.
package match

import (
	"errors"

	"github.com/ashgrove-robotics/fieldpose/internal/field"
)

// ErrEmptyTable is returned when a nearest-pose query runs against a table
// with no entries. Callers decide whether that is fatal; the engine never
// invents a pose.
var ErrEmptyTable = errors.New("match: pose table is empty")

// Table is an ordered, immutable list of candidate poses for one alliance.
// Order matters: ties between equidistant entries resolve to the earliest
// one, so table authors can rank preferred poses first.
type Table struct {
	name  string
	poses []field.Pose
}

// NewTable builds a table from a copy of poses. The copy means callers may
// reuse or mutate their slice afterwards without affecting the table.
func NewTable(name string, poses []field.Pose) Table {
	cp := make([]field.Pose, len(poses))
	copy(cp, poses)
	return Table{name: name, poses: cp}
}

// Name returns the label the table was built with, e.g. "blue".
func (t Table) Name() string { return t.name }

// Len returns the number of entries.
func (t Table) Len() int { return len(t.poses) }

// Pose returns the entry at index i. It panics if i is out of range, same
// as a slice index.
func (t Table) Pose(i int) field.Pose { return t.poses[i] }

// Poses returns a copy of the entries in table order.
func (t Table) Poses() []field.Pose {
	cp := make([]field.Pose, len(t.poses))
	copy(cp, t.poses)
	return cp
}

// Match is the outcome of a nearest-pose query: the winning entry, its
// index in the table, and the squared planar distance from the query.
type Match struct {
	Pose            field.Pose `json:"pose"`
	Index           int        `json:"index"`
	DistanceSquared float64    `json:"distance_squared"`
}

// Nearest returns the entry closest to query by squared planar distance.
// Heading plays no part. Ties keep the earliest entry: a later candidate
// replaces the best match only on a strictly smaller distance.
//
// The result is always drawn from the table. The scan seeds from entry 0,
// so a non-finite query, whose NaN distances compare false against
// everything, still resolves to the first entry instead of nothing.
func (t Table) Nearest(query field.Pose) (Match, error) {
	if len(t.poses) == 0 {
		return Match{}, ErrEmptyTable
	}

	best := Match{
		Pose:            t.poses[0],
		Index:           0,
		DistanceSquared: query.DistanceSquaredTo(t.poses[0]),
	}
	for i := 1; i < len(t.poses); i++ {
		d2 := query.DistanceSquaredTo(t.poses[i])
		if d2 < best.DistanceSquared {
			best = Match{Pose: t.poses[i], Index: i, DistanceSquared: d2}
		}
	}
	return best, nil
}

// TableSet pairs the two alliance tables with the fallback policy applied
// when the alliance is unknown.
type TableSet struct {
	blue     Table
	red      Table
	fallback Alliance
}

// NewTableSet builds a TableSet. fallback selects which table answers
// queries for AllianceUnknown; anything other than AllianceRed falls back
// to blue, matching the long-standing pit default.
func NewTableSet(blue, red Table, fallback Alliance) TableSet {
	if fallback != AllianceRed {
		fallback = AllianceBlue
	}
	return TableSet{blue: blue, red: red, fallback: fallback}
}

// Blue returns the blue-side table.
func (s TableSet) Blue() Table { return s.blue }

// Red returns the red-side table.
func (s TableSet) Red() Table { return s.red }

// Fallback returns the alliance whose table answers unknown queries.
func (s TableSet) Fallback() Alliance { return s.fallback }

// TableFor returns the table serving alliance a, plus whether the fallback
// policy had to stand in for an unknown alliance.
func (s TableSet) TableFor(a Alliance) (Table, bool) {
	switch a {
	case AllianceBlue:
		return s.blue, false
	case AllianceRed:
		return s.red, false
	default:
		if s.fallback == AllianceRed {
			return s.red, true
		}
		return s.blue, true
	}
}

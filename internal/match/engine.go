package match

import (
	"github.com/ashgrove-robotics/fieldpose/internal/field"
)

// Engine answers match-and-offset queries against a TableSet. It holds no
// mutable state: construct once, share everywhere.
type Engine struct {
	tables TableSet
	offset float64
}

// NewEngine builds an engine over tables. offsetMeters is the signed
// distance MatchAndOffset projects along the matched pose's heading;
// negative values back away from the scoring element.
func NewEngine(tables TableSet, offsetMeters float64) *Engine {
	return &Engine{tables: tables, offset: offsetMeters}
}

// Tables returns the engine's table set.
func (e *Engine) Tables() TableSet { return e.tables }

// OffsetMeters returns the engine's configured approach offset.
func (e *Engine) OffsetMeters() float64 { return e.offset }

// Result describes one decision: which table answered, the nearest entry,
// and the approach target projected from it.
type Result struct {
	// Alliance is the side the caller asked for, which may be
	// AllianceUnknown.
	Alliance Alliance `json:"alliance"`
	// UsedFallback is true when Alliance was unknown and the fallback
	// table answered.
	UsedFallback bool `json:"used_fallback"`
	// Table is the name of the table that answered.
	Table string `json:"table"`
	// Match is the nearest table entry.
	Match Match `json:"match"`
	// Target is Match.Pose offset OffsetMeters along its own heading. With
	// a zero offset it equals Match.Pose.
	Target field.Pose `json:"target"`
	// OffsetMeters is the signed offset that produced Target.
	OffsetMeters float64 `json:"offset_meters"`
}

// Closest returns the table entry nearest the robot for alliance a, with
// no offset applied.
func (e *Engine) Closest(a Alliance, robot field.Pose) (Result, error) {
	return e.MatchAndOffsetBy(a, robot, 0)
}

// MatchAndOffset matches the nearest table entry and projects the engine's
// configured offset along the matched heading. The match itself uses the
// raw entry; the offset only shifts the returned target.
func (e *Engine) MatchAndOffset(a Alliance, robot field.Pose) (Result, error) {
	return e.MatchAndOffsetBy(a, robot, e.offset)
}

// MatchAndOffsetBy is MatchAndOffset with an explicit offset, for one-off
// distances without rebuilding the engine.
func (e *Engine) MatchAndOffsetBy(a Alliance, robot field.Pose, offsetMeters float64) (Result, error) {
	table, usedFallback := e.tables.TableFor(a)
	m, err := table.Nearest(robot)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Alliance:     a,
		UsedFallback: usedFallback,
		Table:        table.Name(),
		Match:        m,
		Target:       m.Pose.Offset(offsetMeters),
		OffsetMeters: offsetMeters,
	}, nil
}

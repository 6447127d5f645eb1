package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/units"
)

// Embedded default pose tables, surveyed for the current field revision.
// These load even when no tables file is deployed alongside the binary.
//
//go:embed tables.defaults.json
var defaultTablesJSON []byte

// TableFile is the on-disk schema for pose tables. Headings are stored in
// heading_unit (degrees unless stated otherwise); they are converted to
// radians at load time and stay radians everywhere downstream.
type TableFile struct {
	Revision    string      `json:"revision,omitempty"`
	HeadingUnit string      `json:"heading_unit,omitempty"`
	Blue        []TablePose `json:"blue"`
	Red         []TablePose `json:"red"`
}

// TablePose is one table entry as stored on disk.
type TablePose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// Tables holds the loaded per-alliance pose lists in engine units:
// meters and radians.
type Tables struct {
	Revision string
	Blue     []field.Pose
	Red      []field.Pose
}

// LoadTables returns the tables at path, or the embedded defaults when
// path is empty.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return parseTables(defaultTablesJSON)
	}
	return LoadTablesFile(path)
}

// LoadTablesFile loads pose tables from a JSON file, with the same
// extension and size checks as LoadConfig.
func LoadTablesFile(path string) (*Tables, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}
	t, err := parseTables(data)
	if err != nil {
		return nil, fmt.Errorf("invalid tables file %s: %w", path, err)
	}
	return t, nil
}

// MustDefaultTables parses the embedded default tables, panicking on
// error. The embedded file is fixed at compile time, so a failure here is
// a programming error. Intended for test setup.
func MustDefaultTables() *Tables {
	t, err := parseTables(defaultTablesJSON)
	if err != nil {
		panic("embedded default tables are invalid: " + err.Error())
	}
	return t
}

func parseTables(data []byte) (*Tables, error) {
	var tf TableFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse tables JSON: %w", err)
	}

	unit := tf.HeadingUnit
	if unit == "" {
		unit = units.Degrees
	}
	if !units.IsValidAngleUnit(unit) {
		return nil, fmt.Errorf("heading_unit must be one of %s, got %q", units.GetValidAngleUnitsString(), tf.HeadingUnit)
	}

	blue, err := convertPoses("blue", tf.Blue, unit)
	if err != nil {
		return nil, err
	}
	red, err := convertPoses("red", tf.Red, unit)
	if err != nil {
		return nil, err
	}

	return &Tables{Revision: tf.Revision, Blue: blue, Red: red}, nil
}

// convertPoses maps table entries into engine units. Non-finite entries
// are rejected here, at load time, never at match time.
func convertPoses(side string, entries []TablePose, unit string) ([]field.Pose, error) {
	poses := make([]field.Pose, 0, len(entries))
	for i, e := range entries {
		if !isFinite(e.X) || !isFinite(e.Y) || !isFinite(e.Heading) {
			return nil, fmt.Errorf("%s pose %d is not finite: (%v, %v, %v)", side, i, e.X, e.Y, e.Heading)
		}
		poses = append(poses, field.Pose{
			X:       e.X,
			Y:       e.Y,
			Heading: units.ToRadians(e.Heading, unit),
		})
	}
	return poses, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

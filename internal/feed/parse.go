package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/match"
)

// ErrBadLine wraps every feed line that cannot be parsed. Bad lines are
// counted and dropped; they never halt a feed.
var ErrBadLine = errors.New("feed: bad line")

// Update is the decoded content of one feed line. Either field may be nil
// when the line did not carry it; both nil means the line was blank or a
// comment.
type Update struct {
	Pose     *field.Pose
	Alliance *match.Alliance
}

// Empty reports whether the update carries nothing.
func (u Update) Empty() bool {
	return u.Pose == nil && u.Alliance == nil
}

// jsonUpdate is the JSON line schema. Pointer fields distinguish absent
// keys from zero values; headings are radians, same as the CSV form.
type jsonUpdate struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Heading  *float64 `json:"heading"`
	Alliance *string  `json:"alliance"`
}

// ParseLine decodes one feed line. Blank lines and '#' comments yield an
// empty update with no error. Values are passed through as received;
// staleness and finiteness are judged downstream where the policy lives.
func ParseLine(line []byte) (Update, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] == '#' {
		return Update{}, nil
	}

	if line[0] == '{' {
		return parseJSONLine(line)
	}
	return parseCSVLine(line)
}

func parseJSONLine(line []byte) (Update, error) {
	var ju jsonUpdate
	if err := json.Unmarshal(line, &ju); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrBadLine, err)
	}

	var u Update
	switch {
	case ju.X != nil && ju.Y != nil && ju.Heading != nil:
		u.Pose = &field.Pose{X: *ju.X, Y: *ju.Y, Heading: *ju.Heading}
	case ju.X != nil || ju.Y != nil || ju.Heading != nil:
		return Update{}, fmt.Errorf("%w: pose needs all of x, y, heading", ErrBadLine)
	}

	if ju.Alliance != nil {
		a := match.ParseAlliance(*ju.Alliance)
		u.Alliance = &a
	}

	if u.Empty() {
		return Update{}, fmt.Errorf("%w: no pose or alliance keys", ErrBadLine)
	}
	return u, nil
}

func parseCSVLine(line []byte) (Update, error) {
	parts := bytes.Split(line, []byte(","))
	tag := string(bytes.TrimSpace(parts[0]))

	switch tag {
	case "P", "p":
		if len(parts) != 4 {
			return Update{}, fmt.Errorf("%w: pose line needs 4 fields, got %d", ErrBadLine, len(parts))
		}
		vals := make([]float64, 3)
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(string(bytes.TrimSpace(parts[i+1])), 64)
			if err != nil {
				return Update{}, fmt.Errorf("%w: pose field %d: %v", ErrBadLine, i+1, err)
			}
			vals[i] = v
		}
		return Update{Pose: &field.Pose{X: vals[0], Y: vals[1], Heading: vals[2]}}, nil

	case "A", "a":
		if len(parts) != 2 {
			return Update{}, fmt.Errorf("%w: alliance line needs 2 fields, got %d", ErrBadLine, len(parts))
		}
		a := match.ParseAlliance(string(parts[1]))
		return Update{Alliance: &a}, nil

	default:
		return Update{}, fmt.Errorf("%w: unknown record tag %q", ErrBadLine, tag)
	}
}

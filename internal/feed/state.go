// Package feed ingests robot pose and alliance updates from the field
// network and hands the freshest values to the matching loop.
//
// Feeds are line oriented. Each line is either CSV ("P,<x>,<y>,<heading>"
// for poses with heading in radians, "A,<side>" for alliance) or a JSON
// object with x/y/heading and/or alliance keys. Lines arrive over UDP
// datagrams or a serial port; both producers write into a shared State
// that the loop samples at its own cadence.
package feed

import (
	"sync"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/match"
)

// PoseSnapshot is the latest robot pose along with receipt metadata. Seq
// increments on every update so consumers can tell a fresh value from a
// repeat of the last one.
type PoseSnapshot struct {
	Pose field.Pose
	At   time.Time
	Seq  uint64
}

// AllianceSnapshot is the latest alliance report.
type AllianceSnapshot struct {
	Alliance match.Alliance
	At       time.Time
	Seq      uint64
}

// State is the latest-value store between feeds and the matching loop.
// Writers overwrite, never queue: a loop that falls behind sees only the
// newest pose, which is the one worth matching.
type State struct {
	mu       sync.RWMutex
	pose     PoseSnapshot
	hasPose  bool
	alliance AllianceSnapshot
}

// NewState returns a State with no pose and the alliance unknown.
func NewState() *State {
	return &State{
		alliance: AllianceSnapshot{Alliance: match.AllianceUnknown},
	}
}

// SetPose records a new robot pose observed at the given time.
func (s *State) SetPose(p field.Pose, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = PoseSnapshot{Pose: p, At: at, Seq: s.pose.Seq + 1}
	s.hasPose = true
}

// Pose returns the latest pose snapshot and whether any pose has arrived
// yet.
func (s *State) Pose() (PoseSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pose, s.hasPose
}

// SetAlliance records a new alliance report observed at the given time.
func (s *State) SetAlliance(a match.Alliance, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alliance = AllianceSnapshot{Alliance: a, At: at, Seq: s.alliance.Seq + 1}
}

// Alliance returns the latest alliance snapshot. Before any report
// arrives it carries match.AllianceUnknown with a zero Seq.
func (s *State) Alliance() AllianceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alliance
}

// Apply records whichever parts of an update are present.
func (s *State) Apply(u Update, at time.Time) {
	if u.Pose != nil {
		s.SetPose(*u.Pose, at)
	}
	if u.Alliance != nil {
		s.SetAlliance(*u.Alliance, at)
	}
}

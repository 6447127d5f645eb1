package pipeline

import (
	"sync"

	"github.com/ashgrove-robotics/fieldpose/internal/feed"
)

// LoopSnapshot is a point-in-time copy of the loop counters for the
// status endpoints.
type LoopSnapshot struct {
	Cycles           int64          `json:"cycles"`
	Matches          int64          `json:"matches"`
	SkippedNoPose    int64          `json:"skipped_no_pose"`
	SkippedStale     int64          `json:"skipped_stale"`
	SkippedNonFinite int64          `json:"skipped_non_finite"`
	MatchErrors      int64          `json:"match_errors"`
	PublishErrors    int64          `json:"publish_errors"`
	RecordErrors     int64          `json:"record_errors"`
	LastDecision     *feed.Decision `json:"last_decision,omitempty"`
}

// LoopStats tracks matching loop counters with thread-safe operations.
type LoopStats struct {
	mu   sync.Mutex
	snap LoopSnapshot
}

// NewLoopStats creates a new LoopStats instance.
func NewLoopStats() *LoopStats {
	return &LoopStats{}
}

// Snapshot returns a copy of the current counters.
func (ls *LoopStats) Snapshot() LoopSnapshot {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	out := ls.snap
	if ls.snap.LastDecision != nil {
		d := *ls.snap.LastDecision
		out.LastDecision = &d
	}
	return out
}

func (ls *LoopStats) addCycle() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap.Cycles++
}

func (ls *LoopStats) addMatch(d feed.Decision) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap.Matches++
	ls.snap.LastDecision = &d
}

func (ls *LoopStats) addSkippedNoPose() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap.SkippedNoPose++
}

func (ls *LoopStats) addSkippedStale() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap.SkippedStale++
}

func (ls *LoopStats) addSkippedNonFinite() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap.SkippedNonFinite++
}

func (ls *LoopStats) addMatchError() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap.MatchErrors++
}

func (ls *LoopStats) addPublishError() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap.PublishErrors++
}

func (ls *LoopStats) addRecordError() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap.RecordErrors++
}

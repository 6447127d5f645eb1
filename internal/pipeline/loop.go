// Package pipeline runs the fixed-rate matching loop that connects the
// feed state to the engine, publisher, and telemetry store.
package pipeline

import (
	"context"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/feed"
	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/match"
	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
	"github.com/ashgrove-robotics/fieldpose/internal/timeutil"
)

// Recorder persists match decisions. The telemetry store is the
// production implementation; a nil Recorder disables recording.
type Recorder interface {
	RecordMatch(res match.Result, robot field.Pose, at time.Time) error
}

// LoopConfig contains configuration options for the matching loop.
type LoopConfig struct {
	Engine     *match.Engine
	State      *feed.State
	Publisher  *feed.Publisher
	Recorder   Recorder
	Clock      timeutil.Clock
	Interval   time.Duration
	PoseMaxAge time.Duration
}

// Loop samples the freshest pose and alliance every tick, runs the
// engine, and fans the decision out to the publisher and recorder.
type Loop struct {
	engine     *match.Engine
	state      *feed.State
	publisher  *feed.Publisher
	recorder   Recorder
	clock      timeutil.Clock
	interval   time.Duration
	poseMaxAge time.Duration
	stats      *LoopStats

	// errStreak counts consecutive failed match cycles so the empty-table
	// condition logs once per episode instead of every tick.
	errStreak int64
}

// NewLoop creates a matching loop with the provided configuration.
func NewLoop(config LoopConfig) *Loop {
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	interval := config.Interval
	if interval == 0 {
		interval = 50 * time.Millisecond
	}
	poseMaxAge := config.PoseMaxAge
	if poseMaxAge == 0 {
		poseMaxAge = 500 * time.Millisecond
	}

	return &Loop{
		engine:     config.Engine,
		state:      config.State,
		publisher:  config.Publisher,
		recorder:   config.Recorder,
		clock:      clock,
		interval:   interval,
		poseMaxAge: poseMaxAge,
		stats:      NewLoopStats(),
	}
}

// Stats returns the loop's counters.
func (l *Loop) Stats() *LoopStats { return l.stats }

// Start runs match cycles at the configured interval until ctx is
// cancelled.
func (l *Loop) Start(ctx context.Context) error {
	monitoring.Logf("Match loop started: interval %s, pose max age %s, offset %.2fm",
		l.interval, l.poseMaxAge, l.engine.OffsetMeters())

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("Match loop stopping due to context cancellation")
			return ctx.Err()
		case now := <-ticker.C():
			l.RunCycle(now)
		}
	}
}

// RunCycle executes one match cycle at the given time. Exported so tests
// and one-shot tools can drive cycles without the ticker.
func (l *Loop) RunCycle(now time.Time) {
	l.stats.addCycle()

	snap, ok := l.state.Pose()
	if !ok {
		l.stats.addSkippedNoPose()
		return
	}
	if l.poseMaxAge > 0 && l.clock.Since(snap.At) > l.poseMaxAge {
		l.stats.addSkippedStale()
		return
	}
	if !snap.Pose.IsFinite() {
		l.stats.addSkippedNonFinite()
		return
	}

	alliance := l.state.Alliance().Alliance
	res, err := l.engine.MatchAndOffset(alliance, snap.Pose)
	if err != nil {
		l.errStreak++
		l.stats.addMatchError()
		if l.errStreak == 1 {
			monitoring.Logf("Match failed: %v", err)
		}
		return
	}
	l.errStreak = 0
	l.stats.addMatch(feed.Decision{Time: now, Result: res})

	if err := l.publisher.Publish(res, now); err != nil {
		l.stats.addPublishError()
	}
	if l.recorder != nil {
		if err := l.recorder.RecordMatch(res, snap.Pose, now); err != nil {
			l.stats.addRecordError()
			monitoring.Logf("Telemetry record failed: %v", err)
		}
	}
}

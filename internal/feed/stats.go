package feed

import (
	"sync"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
)

// StatsSnapshot represents a snapshot of recent feed statistics.
type StatsSnapshot struct {
	LinesPerSec float64
	PosesPerSec float64
	BadLines    int64
	Timestamp   time.Time
}

// Totals are cumulative feed counters since startup.
type Totals struct {
	Lines     int64 `json:"lines"`
	Bytes     int64 `json:"bytes"`
	Poses     int64 `json:"poses"`
	Alliances int64 `json:"alliances"`
	BadLines  int64 `json:"bad_lines"`
}

// FeedStats tracks feed line statistics with thread-safe operations.
// Interval counters reset on every LogStats call; totals accumulate for
// the status endpoints.
type FeedStats struct {
	mu             sync.Mutex
	lineCount      int64
	byteCount      int64
	poseCount      int64
	allianceCount  int64
	badLineCount   int64
	totals         Totals
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *StatsSnapshot
}

// NewFeedStats creates a new FeedStats instance.
func NewFeedStats() *FeedStats {
	now := time.Now()
	return &FeedStats{
		lastReset: now,
		startTime: now,
	}
}

// AddLine increments line count and byte count.
func (fs *FeedStats) AddLine(bytes int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.lineCount++
	fs.byteCount += int64(bytes)
	fs.totals.Lines++
	fs.totals.Bytes += int64(bytes)
}

// AddPose increments the parsed pose count.
func (fs *FeedStats) AddPose() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.poseCount++
	fs.totals.Poses++
}

// AddAlliance increments the parsed alliance count.
func (fs *FeedStats) AddAlliance() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.allianceCount++
	fs.totals.Alliances++
}

// AddBadLine increments the unparseable line count.
func (fs *FeedStats) AddBadLine() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.badLineCount++
	fs.totals.BadLines++
}

// GetAndReset returns current interval stats and resets the interval
// counters.
func (fs *FeedStats) GetAndReset() (lines, bytes, poses, alliances, bad int64, duration time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := time.Now()
	duration = now.Sub(fs.lastReset)
	lines = fs.lineCount
	bytes = fs.byteCount
	poses = fs.poseCount
	alliances = fs.allianceCount
	bad = fs.badLineCount

	fs.lineCount = 0
	fs.byteCount = 0
	fs.poseCount = 0
	fs.allianceCount = 0
	fs.badLineCount = 0
	fs.lastReset = now

	return
}

// LogStats logs formatted statistics and stores a snapshot for the status
// endpoints. Intervals with no traffic log nothing.
func (fs *FeedStats) LogStats() {
	lines, _, poses, _, bad, duration := fs.GetAndReset()
	if lines == 0 && bad == 0 {
		return
	}

	linesPerSec := float64(lines) / duration.Seconds()
	posesPerSec := float64(poses) / duration.Seconds()

	fs.mu.Lock()
	fs.latestSnapshot = &StatsSnapshot{
		LinesPerSec: linesPerSec,
		PosesPerSec: posesPerSec,
		BadLines:    bad,
		Timestamp:   time.Now(),
	}
	fs.mu.Unlock()

	if bad > 0 {
		monitoring.Logf("Feed stats (/sec): %.1f lines, %.1f poses, %d bad lines", linesPerSec, posesPerSec, bad)
		return
	}
	monitoring.Logf("Feed stats (/sec): %.1f lines, %.1f poses", linesPerSec, posesPerSec)
}

// GetUptime returns the time since the stats were created.
func (fs *FeedStats) GetUptime() time.Duration {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return time.Since(fs.startTime)
}

// GetTotals returns the cumulative counters.
func (fs *FeedStats) GetTotals() Totals {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.totals
}

// GetLatestSnapshot returns the most recent interval snapshot, or nil
// before the first LogStats with traffic.
func (fs *FeedStats) GetLatestSnapshot() *StatsSnapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.latestSnapshot == nil {
		return nil
	}
	snapshot := *fs.latestSnapshot
	return &snapshot
}

package feed

import (
	"testing"

	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
)

func TestFeedStatsCountersAndReset(t *testing.T) {
	fs := NewFeedStats()

	fs.AddLine(24)
	fs.AddLine(30)
	fs.AddPose()
	fs.AddAlliance()
	fs.AddBadLine()

	lines, bytes, poses, alliances, bad, _ := fs.GetAndReset()
	if lines != 2 || bytes != 54 || poses != 1 || alliances != 1 || bad != 1 {
		t.Errorf("GetAndReset = %d lines, %d bytes, %d poses, %d alliances, %d bad",
			lines, bytes, poses, alliances, bad)
	}

	// Interval counters reset; totals do not.
	lines, bytes, poses, alliances, bad, _ = fs.GetAndReset()
	if lines != 0 || bytes != 0 || poses != 0 || alliances != 0 || bad != 0 {
		t.Error("interval counters should reset")
	}

	totals := fs.GetTotals()
	if totals.Lines != 2 || totals.Bytes != 54 || totals.Poses != 1 || totals.Alliances != 1 || totals.BadLines != 1 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestFeedStatsSnapshot(t *testing.T) {
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	defer func() { monitoring.Logf = original }()

	fs := NewFeedStats()

	// No traffic: no snapshot.
	fs.LogStats()
	if fs.GetLatestSnapshot() != nil {
		t.Error("snapshot should be nil before any traffic")
	}

	fs.AddLine(20)
	fs.AddPose()
	fs.AddBadLine()
	fs.LogStats()

	snap := fs.GetLatestSnapshot()
	if snap == nil {
		t.Fatal("expected a snapshot after traffic")
	}
	if snap.BadLines != 1 {
		t.Errorf("snapshot bad lines = %d, want 1", snap.BadLines)
	}
	if snap.LinesPerSec <= 0 || snap.PosesPerSec <= 0 {
		t.Errorf("snapshot rates = %f lines/s, %f poses/s, want positive", snap.LinesPerSec, snap.PosesPerSec)
	}
}

func TestFeedStatsUptime(t *testing.T) {
	fs := NewFeedStats()
	if fs.GetUptime() < 0 {
		t.Error("uptime should be non-negative")
	}
}

package feed

import (
	"bufio"
	"context"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
	"github.com/ashgrove-robotics/fieldpose/internal/timeutil"
)

// SerialFeed reads feed lines from a serial port, typically a driver
// station tether used when the field network is down. The feed reopens
// the port after read failures until its context is cancelled.
type SerialFeed struct {
	path           string
	opts           PortOptions
	open           func(path string, opts PortOptions) (SerialPorter, error)
	state          *State
	stats          StatsSink
	clock          timeutil.Clock
	reconnectDelay time.Duration
}

// SerialFeedConfig contains configuration options for a serial feed.
type SerialFeedConfig struct {
	Path           string
	Options        PortOptions
	State          *State
	Stats          StatsSink
	Clock          timeutil.Clock
	ReconnectDelay time.Duration

	// Open overrides how ports are opened. Defaults to OpenSerialPort;
	// tests substitute a MockPort here.
	Open func(path string, opts PortOptions) (SerialPorter, error)
}

// NewSerialFeed creates a serial feed with the provided configuration.
func NewSerialFeed(config SerialFeedConfig) *SerialFeed {
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	reconnectDelay := config.ReconnectDelay
	if reconnectDelay == 0 {
		reconnectDelay = 2 * time.Second
	}
	open := config.Open
	if open == nil {
		open = OpenSerialPort
	}

	return &SerialFeed{
		path:           config.Path,
		opts:           config.Options,
		open:           open,
		state:          config.State,
		stats:          statsOrNoop(config.Stats),
		clock:          clock,
		reconnectDelay: reconnectDelay,
	}
}

// Start reads lines from the port until ctx is cancelled, reopening the
// port after failures.
func (f *SerialFeed) Start(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		port, err := f.open(f.path, f.opts)
		if err != nil {
			monitoring.Logf("Serial feed: open %s: %v", f.path, err)
			if !f.waitForRetry(ctx) {
				return ctx.Err()
			}
			continue
		}

		monitoring.Logf("Serial feed reading from %s", f.path)
		f.readLines(ctx, port)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		monitoring.Logf("Serial feed: %s closed, reopening in %s", f.path, f.reconnectDelay)
		if !f.waitForRetry(ctx) {
			return ctx.Err()
		}
	}
}

// waitForRetry pauses for the reconnect delay. It returns false when the
// context was cancelled instead.
func (f *SerialFeed) waitForRetry(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-f.clock.After(f.reconnectDelay):
		return true
	}
}

// readLines consumes the port until it errors, hits EOF, or ctx is
// cancelled. The watcher goroutine closes the port on cancellation to
// unblock the scanner.
func (f *SerialFeed) readLines(ctx context.Context, port SerialPorter) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-watchCtx.Done()
		port.Close()
	}()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		f.handleLine(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		monitoring.Logf("Serial feed read error: %v", err)
	}
}

func (f *SerialFeed) handleLine(line []byte) {
	if len(line) == 0 {
		return
	}
	f.stats.AddLine(len(line))

	update, err := ParseLine(line)
	if err != nil {
		f.stats.AddBadLine()
		monitoring.Logf("Serial feed parse error: %v", err)
		return
	}
	if update.Empty() {
		return
	}

	f.state.Apply(update, f.clock.Now())
	if update.Pose != nil {
		f.stats.AddPose()
	}
	if update.Alliance != nil {
		f.stats.AddAlliance()
	}
}

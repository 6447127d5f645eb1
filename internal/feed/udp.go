package feed

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
)

// StatsSink receives feed accounting events. FeedStats is the production
// implementation; tests may substitute their own.
type StatsSink interface {
	AddLine(bytes int)
	AddPose()
	AddAlliance()
	AddBadLine()
	LogStats()
}

// noopStats is a StatsSink implementation that does nothing. It is used
// as a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddLine(bytes int) {}
func (noopStats) AddPose()          {}
func (noopStats) AddAlliance()      {}
func (noopStats) AddBadLine()       {}
func (noopStats) LogStats()         {}

func statsOrNoop(s StatsSink) StatsSink {
	if s == nil {
		return noopStats{}
	}
	return s
}

// UDPListener receives feed datagrams from the robot and applies the
// decoded updates to a State.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	conn        *net.UDPConn
	stats       StatsSink
	state       *State
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       StatsSink
	State       *State
}

// NewUDPListener creates a new UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	rcvBuf := config.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 1 << 16
	}

	return &UDPListener{
		address:     config.Address,
		rcvBuf:      rcvBuf,
		logInterval: logInterval,
		stats:       statsOrNoop(config.Stats),
		state:       config.State,
	}
}

// Start begins listening for feed datagrams and processing them. It
// blocks until ctx is cancelled or the socket fails to open.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("Warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
	}

	monitoring.Logf("Feed listener started on %s", conn.LocalAddr())

	go l.startStatsLogging(ctx)

	// Pose lines are tens of bytes; the margin covers batched updates in
	// one datagram.
	buffer := make([]byte, 2048)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("Feed listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Set read deadline to allow checking context cancellation
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // Continue on timeout to check context
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			if err := l.handleDatagram(buffer[:n]); err != nil {
				monitoring.Logf("Error handling datagram from %v: %v", addr, err)
			}
		}
	}
}

// LocalAddr returns the bound address once Start has opened the socket.
// Useful when the listener was configured with port 0.
func (l *UDPListener) LocalAddr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// startStatsLogging periodically logs feed statistics. An initial report
// fires shortly after startup so the first minute is not silent.
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}

// handleDatagram splits a datagram into lines and applies each one. A bad
// line is counted and skipped without dropping the rest of the datagram.
func (l *UDPListener) handleDatagram(datagram []byte) error {
	now := time.Now()
	for _, line := range bytes.Split(datagram, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		l.stats.AddLine(len(line))

		update, err := ParseLine(line)
		if err != nil {
			l.stats.AddBadLine()
			monitoring.Logf("Feed parse error: %v", err)
			continue
		}
		if update.Empty() {
			continue
		}

		l.state.Apply(update, now)
		if update.Pose != nil {
			l.stats.AddPose()
		}
		if update.Alliance != nil {
			l.stats.AddAlliance()
		}
	}
	return nil
}

// Close closes the UDP listener and releases resources.
func (l *UDPListener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

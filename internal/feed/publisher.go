package feed

import (
	"encoding/json"
	"net"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/match"
)

// Decision is the published wire format for one match cycle: the engine
// result plus when it was made. Consumers on the robot network decode it
// as a single JSON datagram.
type Decision struct {
	Time time.Time `json:"time"`
	match.Result
}

// Publisher sends match decisions over UDP as JSON datagrams. A Publisher
// built with an empty address, or a nil Publisher, silently drops
// everything, so callers never need to branch on whether publishing is
// configured.
type Publisher struct {
	conn *net.UDPConn
}

// NewPublisher creates a UDP publisher for the given address. An empty
// address yields a disabled publisher.
func NewPublisher(addr string) (*Publisher, error) {
	if addr == "" {
		return &Publisher{}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// Close releases the UDP socket.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// Publish sends one decision. Datagram loss is acceptable here; send
// errors are returned for accounting but safe to ignore.
func (p *Publisher) Publish(res match.Result, at time.Time) error {
	if p == nil || p.conn == nil {
		return nil
	}
	payload, err := json.Marshal(Decision{Time: at, Result: res})
	if err != nil {
		return err
	}
	_, err = p.conn.Write(payload)
	return err
}

// Enabled reports whether the publisher has a live socket.
func (p *Publisher) Enabled() bool {
	return p != nil && p.conn != nil
}

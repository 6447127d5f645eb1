//go:build pcap
// +build pcap

package feed

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
)

// ReplayCapture resends the UDP feed datagrams in a packet capture to
// target, preserving the captured spacing scaled by speed. It returns
// the number of datagrams sent. Only available when building with the
// 'pcap' build tag.
func ReplayCapture(ctx context.Context, captureFile string, port int, target string, speed float64) (int, error) {
	if speed <= 0 {
		speed = 1.0
	}

	handle, err := pcap.OpenOffline(captureFile)
	if err != nil {
		return 0, fmt.Errorf("open capture %s: %w", captureFile, err)
	}
	defer handle.Close()

	filter := fmt.Sprintf("udp port %d", port)
	if err := handle.SetBPFFilter(filter); err != nil {
		return 0, fmt.Errorf("set BPF filter %q: %w", filter, err)
	}

	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return 0, fmt.Errorf("resolve target %s: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return 0, fmt.Errorf("dial target %s: %w", target, err)
	}
	defer conn.Close()

	monitoring.Logf("Replaying %s to %s (filter %q, speed %.1fx)", captureFile, target, filter, speed)

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	sent := 0
	var lastCapture time.Time

	for {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case packet := <-source.Packets():
			if packet == nil {
				// End of capture file
				monitoring.Logf("Replay complete: %d datagrams", sent)
				return sent, nil
			}

			captureTime := packet.Metadata().Timestamp
			if !lastCapture.IsZero() {
				delay := time.Duration(float64(captureTime.Sub(lastCapture)) / speed)
				if delay > 0 {
					select {
					case <-ctx.Done():
						return sent, ctx.Err()
					case <-time.After(delay):
					}
				}
			}
			lastCapture = captureTime

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}

			if _, err := conn.Write(udp.Payload); err != nil {
				return sent, fmt.Errorf("send datagram %d: %w", sent+1, err)
			}
			sent++

			if sent%1000 == 0 {
				monitoring.Logf("Replay progress: %d datagrams", sent)
			}
		}
	}
}

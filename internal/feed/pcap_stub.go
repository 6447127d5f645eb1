//go:build !pcap
// +build !pcap

package feed

import (
	"context"
	"fmt"
)

// ReplayCapture is a stub implementation when capture support is disabled.
// Build with -tags=pcap to enable capture replay.
func ReplayCapture(ctx context.Context, captureFile string, port int, target string, speed float64) (int, error) {
	return 0, fmt.Errorf("capture replay not enabled: rebuild with -tags=pcap to enable it")
}

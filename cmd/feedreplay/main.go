// Command feedreplay resends the UDP feed datagrams from a packet
// capture to a running fieldpose service, preserving the captured
// timing. Capture reading needs the 'pcap' build tag; without it the
// command reports how to rebuild.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ashgrove-robotics/fieldpose/internal/feed"
)

func main() {
	var captureFile string
	var target string
	var port int
	var speed float64

	flag.StringVar(&captureFile, "file", "", "packet capture to replay (pcap/pcapng)")
	flag.StringVar(&target, "target", "127.0.0.1:5800", "feed listener address to send to")
	flag.IntVar(&port, "port", 5800, "UDP port filter applied to the capture")
	flag.Float64Var(&speed, "speed", 1.0, "replay speed multiplier (2.0 = twice as fast)")
	flag.Parse()

	if captureFile == "" {
		log.Fatalf("capture file must be provided with -file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sent, err := feed.ReplayCapture(ctx, captureFile, port, target, speed)
	if err != nil && err != context.Canceled {
		log.Fatalf("replay failed after %d datagrams: %v", sent, err)
	}
	fmt.Printf("replay complete: %d datagrams sent\n", sent)
}

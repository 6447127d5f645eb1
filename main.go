// Command fieldpose runs the pose matching service. It ingests robot
// pose and alliance updates over UDP or serial, matches each fresh pose
// against the active alliance's scoring table at a fixed rate, and fans
// the offset approach targets out to a UDP publisher, a SQLite
// telemetry store, and an HTTP monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/config"
	"github.com/ashgrove-robotics/fieldpose/internal/feed"
	"github.com/ashgrove-robotics/fieldpose/internal/match"
	"github.com/ashgrove-robotics/fieldpose/internal/monitor"
	"github.com/ashgrove-robotics/fieldpose/internal/pipeline"
	"github.com/ashgrove-robotics/fieldpose/internal/telemetry"
	"github.com/ashgrove-robotics/fieldpose/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON config file (empty runs on defaults)")
	listenAddr  = flag.String("listen", "", "UDP feed listen address (overrides config)")
	monitorAddr = flag.String("monitor", "", "HTTP monitor address (overrides config)")
	publishAddr = flag.String("publish", "", "UDP decision publish address (overrides config)")
	serialDev   = flag.String("serial", "", "Serial feed device (overrides config)")
	dbPath      = flag.String("db", "", "Telemetry database path (overrides config; \"off\" disables)")
	devMode     = flag.Bool("dev", false, "Replay fixtures.txt through the serial feed instead of real inputs")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// override returns the flag value when set, otherwise the config value.
func override(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

// fixtureOpen returns a port opener that replays fixture lines through
// an in-memory port at a fixed cadence. The feed sees EOF after the
// last line and reopens the port, so the replay loops until shutdown.
func fixtureOpen(data []byte, interval time.Duration) func(string, feed.PortOptions) (feed.SerialPorter, error) {
	lines := strings.Split(string(data), "\n")
	return func(string, feed.PortOptions) (feed.SerialPorter, error) {
		port := feed.NewMockPort()
		go func() {
			for _, line := range lines {
				if strings.TrimSpace(line) == "" {
					continue
				}
				// WriteLine fails once the feed closes the port; stop replaying.
				if err := port.WriteLine(line); err != nil {
					return
				}
				time.Sleep(interval)
			}
			port.CloseWrite()
		}()
		return port, nil
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("fieldpose %s\n", version.String())
		return
	}

	log.Printf("fieldpose %s (%s)", version.Version, version.GitSHA)

	cfg := config.EmptyConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Config: %v", err)
		}
		cfg = loaded
	}

	engine, tables, err := match.EngineFromConfig(cfg)
	if err != nil {
		log.Fatalf("Pose tables: %v", err)
	}
	log.Printf("Pose tables %q: %d blue, %d red, offset %.2fm, fallback %s",
		tables.Revision, len(tables.Blue), len(tables.Red),
		engine.OffsetMeters(), engine.Tables().Fallback())

	state := feed.NewState()
	stats := feed.NewFeedStats()

	// Telemetry is optional: "off" (or an empty config value) runs the
	// service without a database.
	var store *telemetry.Store
	if path := override(*dbPath, cfg.GetDBPath()); path != "" && path != "off" {
		store, err = telemetry.Open(path)
		if err != nil {
			log.Fatalf("Telemetry: %v", err)
		}
		defer store.Close()

		session, err := store.BeginSession(tables.Revision, engine.OffsetMeters())
		if err != nil {
			log.Fatalf("Telemetry session: %v", err)
		}
		log.Printf("Telemetry session %s recording to %s", session, path)
	}

	publisher, err := feed.NewPublisher(override(*publishAddr, cfg.GetPublishAddr()))
	if err != nil {
		log.Fatalf("Publisher: %v", err)
	}
	defer publisher.Close()
	if publisher.Enabled() {
		log.Printf("Publishing decisions to %s", override(*publishAddr, cfg.GetPublishAddr()))
	}

	listener := feed.NewUDPListener(feed.UDPListenerConfig{
		Address: override(*listenAddr, cfg.GetListenAddr()),
		Stats:   stats,
		State:   state,
	})

	// The serial feed backs up the UDP path over a driver station tether.
	// Dev mode replays canned fixture lines through the same code path.
	var serialFeed *feed.SerialFeed
	if *devMode {
		data, err := os.ReadFile("fixtures.txt")
		if err != nil {
			log.Fatalf("Dev mode needs fixtures.txt: %v", err)
		}
		log.Printf("Dev mode: replaying fixtures.txt through the serial feed")
		serialFeed = feed.NewSerialFeed(feed.SerialFeedConfig{
			Path:  "fixtures.txt",
			State: state,
			Stats: stats,
			Open:  fixtureOpen(data, 50*time.Millisecond),
		})
	} else if dev := override(*serialDev, cfg.GetSerialPort()); dev != "" {
		serialFeed = feed.NewSerialFeed(feed.SerialFeedConfig{
			Path:    dev,
			Options: feed.PortOptions{BaudRate: cfg.GetSerialBaud()},
			State:   state,
			Stats:   stats,
		})
	}

	loopConfig := pipeline.LoopConfig{
		Engine:     engine,
		State:      state,
		Publisher:  publisher,
		Interval:   cfg.GetLoopInterval(),
		PoseMaxAge: cfg.GetPoseMaxAge(),
	}
	// Assign only a live store: a typed nil in the interface would pass
	// the loop's recorder check and panic on first use.
	if store != nil {
		loopConfig.Recorder = store
	}
	loop := pipeline.NewLoop(loopConfig)

	webServer := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   override(*monitorAddr, cfg.GetMonitorAddr()),
		Engine:    engine,
		Tables:    tables,
		State:     state,
		FeedStats: stats,
		LoopStats: loop.Stats(),
		Store:     store,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Feed listener error: %v", err)
			stop()
		}
	}()

	if serialFeed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serialFeed.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("Serial feed error: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Match loop error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webServer.Start(ctx); err != nil {
			log.Printf("Monitor server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received, stopping...")

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

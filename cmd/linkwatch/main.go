// linkwatch connects to a configured data source and streams its events to
// the console. Usage: go run ./cmd/linkwatch --config configs/source.yaml
//
// The endpoint URL and credential can also be given directly:
//
//	go run ./cmd/linkwatch --url wss://source.example.com/stream
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mwhitlock/sourcelink/internal/config"
	"github.com/mwhitlock/sourcelink/internal/event"
	"github.com/mwhitlock/sourcelink/internal/manager"
	"github.com/mwhitlock/sourcelink/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	urlFlag := flag.String("url", "", "data source URL (overrides config)")
	tokenFlag := flag.String("token", "", "bearer credential (overrides config)")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Setup logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// Load config
	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.LoadWithDefaults(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg.ApplyDefaults()
	}
	if *urlFlag != "" {
		cfg.Endpoint.URL = *urlFlag
	}
	if *tokenFlag != "" {
		cfg.Endpoint.Token = *tokenFlag
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	mgr := manager.New(cfg.Endpoint, cfg.Policy, logger)

	mgr.Subscribe(event.NameConnected, func(ev event.Event) {
		fmt.Printf("[CONNECTED] %s\n", cfg.Endpoint.URL)
	})
	mgr.Subscribe(event.NameDisconnected, func(ev event.Event) {
		if ev.Err != nil {
			fmt.Printf("[DISCONNECTED] reason=%s error=%v\n", ev.Reason, ev.Err)
		} else {
			fmt.Printf("[DISCONNECTED] reason=%s\n", ev.Reason)
		}
	})
	mgr.Subscribe(event.NameError, func(ev event.Event) {
		fmt.Printf("[ERROR] %v\n", ev.Err)
	})
	mgr.Subscribe(event.NameMessage, func(ev event.Event) {
		if *verbose {
			data, _ := json.MarshalIndent(ev.Frame, "", "  ")
			fmt.Printf("[MESSAGE] %s\n", data)
		} else {
			fmt.Printf("[MESSAGE] type=%s ts=%d payload=%d bytes\n",
				ev.Frame.Type, ev.Frame.Timestamp, len(ev.Frame.Payload))
		}
	})

	logger.Info("connecting", "url", cfg.Endpoint.URL)
	mgr.Start(ctx)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := mgr.Stats()
				logger.Info("stats",
					"state", stats.State.String(),
					"reconnect_attempts", stats.ReconnectAttempts,
					"frames_in", stats.FramesIn,
					"frames_out", stats.FramesOut,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	mgr.Stop()
	logger.Info("shutdown complete")
}

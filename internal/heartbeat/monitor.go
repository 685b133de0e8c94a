package heartbeat

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mwhitlock/sourcelink/internal/frame"
	"github.com/mwhitlock/sourcelink/internal/session"
)

// Sender is the session surface the monitor needs.
type Sender interface {
	Send(data []byte) error
	LastActivity() time.Time
}

// Config configures one monitor.
type Config struct {
	// Interval between heartbeat frames.
	Interval time.Duration

	// LivenessTimeout flags the peer as dead when no inbound activity is
	// seen for this long. Zero disables the check (best-effort liveness).
	LivenessTimeout time.Duration

	// OnStale is invoked once, from the monitor goroutine, when the
	// liveness check trips. The monitor stops itself afterwards.
	OnStale func()
}

// Monitor sends heartbeat frames over an open session at a fixed interval.
// It must only run while its session is Open: the owner starts it on the
// Opened transition and stops it before any reconnection logic runs.
type Monitor struct {
	cfg    Config
	sender Sender
	logger *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Start creates a monitor and begins ticking immediately.
func Start(sender Sender, cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		cfg:    cfg,
		sender: sender,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go m.loop()
	return m
}

// Stop cancels the monitor and returns only after the tick goroutine has
// exited, guaranteeing that no heartbeat fires after Stop returns. Safe to
// call more than once and after the monitor stopped itself.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

func (m *Monitor) loop() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if m.cfg.LivenessTimeout > 0 {
				idle := time.Since(m.sender.LastActivity())
				if idle > m.cfg.LivenessTimeout {
					m.logger.Warn("peer silent beyond liveness timeout",
						"idle", idle,
						"timeout", m.cfg.LivenessTimeout,
					)
					if m.cfg.OnStale != nil {
						m.cfg.OnStale()
					}
					return
				}
			}

			data, err := frame.Heartbeat()
			if err != nil {
				m.logger.Error("failed to build heartbeat frame", "error", err)
				continue
			}
			if err := m.sender.Send(data); err != nil {
				// The session left Open under us; the supervisor owns
				// what happens next.
				if !errors.Is(err, session.ErrNotOpen) {
					m.logger.Debug("heartbeat send failed", "error", err)
				}
				return
			}
		}
	}
}

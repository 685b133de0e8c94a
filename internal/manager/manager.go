package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/mwhitlock/sourcelink/internal/config"
	"github.com/mwhitlock/sourcelink/internal/event"
	"github.com/mwhitlock/sourcelink/internal/frame"
	"github.com/mwhitlock/sourcelink/internal/heartbeat"
	"github.com/mwhitlock/sourcelink/internal/session"
)

// Errors
var (
	// ErrNotOpen is returned by Send when no session is open. The caller
	// owns re-submission; the manager never retries a send.
	ErrNotOpen = session.ErrNotOpen

	// ErrRetriesExhausted is the terminal error emitted when the attempt
	// counter reaches the policy budget. The manager is inert afterwards
	// and must be reconstructed to resume.
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")

	// ErrTransport wraps transport-level failures surfaced as error events.
	ErrTransport = errors.New("transport failure")
)

// Stats is a point-in-time snapshot for introspection.
type Stats struct {
	State             session.State
	ReconnectAttempts int32
	Terminal          bool
	FramesIn          int64
	FramesOut         int64
}

// Manager maintains one long-lived logical connection to a data source,
// rebuilding sessions across transport failures until Stop is called or the
// retry budget is exhausted.
type Manager struct {
	endpoint   config.Endpoint
	policy     config.Policy
	logger     *slog.Logger
	dispatcher *event.Dispatcher

	shutdown *atomic.Bool
	started  *atomic.Bool
	terminal *atomic.Bool
	attempts *atomic.Int32

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu   sync.Mutex
	sess *session.Session
}

// New creates a manager for one endpoint. The endpoint and policy are fixed
// for the manager's lifetime.
func New(endpoint config.Endpoint, policy config.Policy, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("endpoint", endpoint.URL)

	return &Manager{
		endpoint:   endpoint,
		policy:     policy,
		logger:     logger,
		dispatcher: event.NewDispatcher(logger),
		shutdown:   atomic.NewBool(false),
		started:    atomic.NewBool(false),
		terminal:   atomic.NewBool(false),
		attempts:   atomic.NewInt32(0),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the first connect attempt and returns immediately. Calling
// Start more than once is a no-op.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run(ctx)
}

// Stop performs a graceful, idempotent shutdown: it latches the shutdown
// flag, cancels any pending reconnect delay or in-flight dial, closes the
// live session, and returns only once the supervisor loop has exited. No
// events are delivered to subscribers after Stop returns.
//
// Stop must not be called from inside an event handler: handlers run on the
// supervisor goroutine that Stop waits for.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.shutdown.Store(true)
		close(m.stopCh)
	})
	if m.started.Load() {
		<-m.doneCh
	}
}

// Send encodes and transmits a frame of the given type. Best-effort,
// at-most-once: fails fast with ErrNotOpen when no session is open.
func (m *Manager) Send(frameType string, payload any) error {
	m.mu.Lock()
	sess := m.sess
	m.mu.Unlock()

	if sess == nil {
		return ErrNotOpen
	}
	data, err := frame.Encode(frameType, payload)
	if err != nil {
		return err
	}
	return sess.Send(data)
}

// Subscribe registers a handler for an event name ("connected",
// "disconnected", "error", "message", or "message:<type>") and returns a
// function that removes the registration.
func (m *Manager) Subscribe(name string, h event.Handler) func() {
	return m.dispatcher.Subscribe(name, h)
}

// CurrentState reports the live session's state, or Idle before the first
// session exists.
func (m *Manager) CurrentState() session.State {
	m.mu.Lock()
	sess := m.sess
	m.mu.Unlock()

	if sess == nil {
		return session.StateIdle
	}
	return sess.State()
}

// Stats returns a snapshot of the manager and its current session.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	sess := m.sess
	m.mu.Unlock()

	st := Stats{
		State:             session.StateIdle,
		ReconnectAttempts: m.attempts.Load(),
		Terminal:          m.terminal.Load(),
	}
	if sess != nil {
		st.State = sess.State()
		ss := sess.Stats()
		st.FramesIn = ss.FramesIn
		st.FramesOut = ss.FramesOut
	}
	return st
}

// run is the supervisor loop. It is the only goroutine that creates and
// replaces sessions, so all transitions for one manager are serialized.
func (m *Manager) run(ctx context.Context) {
	defer close(m.doneCh)

	for {
		if m.shutdown.Load() {
			return
		}

		sess := session.New(session.Config{
			URL:              m.endpoint.URL,
			Token:            m.endpoint.Token,
			HandshakeTimeout: m.policy.HandshakeTimeout,
			WriteTimeout:     m.policy.WriteTimeout,
			BufferSize:       m.policy.BufferSize,
		}, m.logger)

		m.mu.Lock()
		m.sess = sess
		m.mu.Unlock()

		if err := sess.Open(ctx); err != nil {
			// Fresh sessions are always Idle; treat misuse as fatal.
			m.logger.Error("failed to open session", "error", err)
			return
		}

		if stopped := m.serve(sess); stopped {
			return
		}

		if m.shutdown.Load() {
			return
		}

		n := m.attempts.Load()
		budget := int32(m.policy.MaxReconnectAttempts)
		if budget > 0 && n >= budget {
			m.terminal.Store(true)
			m.logger.Error("reconnect attempts exhausted", "attempts", n)
			m.dispatcher.Error(ErrRetriesExhausted)
			return
		}

		m.attempts.Inc()
		m.logger.Info("scheduling reconnect",
			"attempt", m.attempts.Load(),
			"delay", m.policy.ReconnectInterval,
		)

		timer := time.NewTimer(m.policy.ReconnectInterval)
		select {
		case <-timer.C:
		case <-m.stopCh:
			timer.Stop()
			return
		}
	}
}

// serve drives one session from open to closed, dispatching events along
// the way. It returns true when the manager was stopped.
func (m *Manager) serve(sess *session.Session) (stopped bool) {
	var mon *heartbeat.Monitor
	stopMonitor := func() {
		if mon != nil {
			mon.Stop()
			mon = nil
		}
	}
	defer stopMonitor()

	for {
		select {
		case <-m.stopCh:
			stopMonitor()
			sess.Close(session.ReasonClientShutdown)
			m.awaitClosed(sess)
			m.dispatcher.Disconnected(session.ReasonClientShutdown, nil)
			return true

		case lc := <-sess.Lifecycle():
			switch lc.Kind {
			case session.LifecycleOpened:
				if m.shutdown.Load() {
					// Dial won the race against Stop; tear the session
					// down without announcing it.
					sess.Close(session.ReasonClientShutdown)
					continue
				}
				m.attempts.Store(0)
				mon = heartbeat.Start(sess, heartbeat.Config{
					Interval:        m.policy.HeartbeatInterval,
					LivenessTimeout: m.policy.LivenessTimeout,
					OnStale: func() {
						sess.Close(session.ReasonLivenessTimeout)
					},
				}, m.logger)
				m.logger.Info("connected")
				m.dispatcher.Connected()

			case session.LifecycleClosed:
				// Heartbeats stop before any reconnection logic runs.
				stopMonitor()
				closeErr := lc.Err
				if closeErr == nil && lc.Reason == session.ReasonLivenessTimeout {
					// A silent peer counts as a transport failure.
					closeErr = errors.New("peer stopped responding")
				}
				if closeErr != nil {
					m.dispatcher.Error(fmt.Errorf("%w: %v", ErrTransport, closeErr))
				}
				m.dispatcher.Disconnected(lc.Reason, closeErr)
				return false
			}

		case in := <-sess.Inbound():
			if in.Err != nil {
				// One bad frame never closes the session.
				m.logger.Warn("dropping undecodable frame", "error", in.Err)
				m.dispatcher.Error(in.Err)
				continue
			}
			m.dispatcher.Message(in.Frame)
		}
	}
}

// awaitClosed drains a session's lifecycle channel until the Closed
// notification arrives, so the transport is released before Stop returns.
func (m *Manager) awaitClosed(sess *session.Session) {
	for lc := range sess.Lifecycle() {
		if lc.Kind == session.LifecycleClosed {
			return
		}
	}
}

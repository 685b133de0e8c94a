package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/mwhitlock/sourcelink/internal/frame"
)

// Session owns one physical WebSocket connection. All state transitions are
// serialized under the state mutex; lifecycle and data events are reported on
// the Lifecycle and Inbound channels.
type Session struct {
	id     uuid.UUID
	cfg    Config
	logger *slog.Logger

	lifecycle chan Lifecycle
	inbound   chan Inbound
	done      chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State machine
	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	lastActivity atomic.Time
	framesIn     atomic.Int64
	framesOut    atomic.Int64
}

// New creates a session in the Idle state.
func New(cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}

	id := uuid.New()
	return &Session{
		id:     id,
		cfg:    cfg,
		logger: logger.With("session_id", id),

		// Opened and Closed are each emitted at most once, so the
		// lifecycle channel never blocks a sender.
		lifecycle: make(chan Lifecycle, 2),
		inbound:   make(chan Inbound, cfg.BufferSize),
		done:      make(chan struct{}),
		state:     StateIdle,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Lifecycle returns the channel carrying Opened/Closed notifications.
func (s *Session) Lifecycle() <-chan Lifecycle {
	return s.lifecycle
}

// Inbound returns the channel carrying decoded frames and decode errors.
func (s *Session) Inbound() <-chan Inbound {
	return s.inbound
}

// LastActivity returns the time of the last inbound data or pong.
func (s *Session) LastActivity() time.Time {
	return s.lastActivity.Load()
}

// Stats returns frame counters for this session.
func (s *Session) Stats() Stats {
	return Stats{
		FramesIn:  s.framesIn.Load(),
		FramesOut: s.framesOut.Load(),
	}
}

// Open begins the connection attempt. It never blocks: the dial runs in a
// goroutine and the outcome arrives on the lifecycle channel as Opened or
// Closed. Open is valid exactly once, from Idle.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyOpened
	}
	s.state = StateConnecting
	s.mu.Unlock()

	go s.dial(ctx)
	return nil
}

// Send encodes nothing: it writes pre-encoded frame bytes to the transport.
// Fails fast with ErrNotOpen unless the session is Open. The caller owns
// re-submission policy.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	conn := s.conn
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	s.framesOut.Inc()
	return nil
}

// Close transitions the session to Closed and releases the transport.
// Closing an already-closed session is a no-op.
func (s *Session) Close(reason string) {
	s.close(reason, nil)
}

// dial performs the transport-level connection attempt.
func (s *Session) dial(ctx context.Context) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if s.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		s.close(ReasonConnectFailed, err)
		return
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Closed while the dial was in flight; drop the connection.
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.state = StateOpen
	s.mu.Unlock()

	s.lastActivity.Store(time.Now())

	conn.SetPingHandler(func(data string) error {
		s.lastActivity.Store(time.Now())
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		s.lastActivity.Store(time.Now())
		return nil
	})

	s.logger.Debug("session open", "url", s.cfg.URL)
	s.lifecycle <- Lifecycle{Kind: LifecycleOpened}

	go s.readLoop(conn)
}

// readLoop reads raw frames, decodes them, and reports them inbound.
// A decode failure is reported and the session stays open; a transport
// error closes the session.
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Reads fail with a close error after Close(); the close
			// path already reported the closure in that case.
			s.close(ReasonTransportError, err)
			return
		}
		s.lastActivity.Store(time.Now())

		f, derr := frame.Decode(data)
		if derr != nil {
			s.report(Inbound{Err: derr})
			continue
		}
		s.framesIn.Inc()
		s.report(Inbound{Frame: f})
	}
}

// report delivers an inbound notice unless the session has closed.
func (s *Session) report(in Inbound) {
	select {
	case s.inbound <- in:
	case <-s.done:
	}
}

// close performs the Closing -> Closed transition exactly once and emits a
// single Closed lifecycle notification.
func (s *Session) close(reason string, err error) {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	close(s.done)

	if err != nil {
		s.logger.Debug("session closed", "reason", reason, "error", err)
	} else {
		s.logger.Debug("session closed", "reason", reason)
	}
	s.lifecycle <- Lifecycle{Kind: LifecycleClosed, Reason: reason, Err: err}
}

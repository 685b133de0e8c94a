package session

import (
	"errors"
	"time"

	"github.com/mwhitlock/sourcelink/internal/frame"
)

// Errors
var (
	ErrNotOpen       = errors.New("session not open")
	ErrAlreadyOpened = errors.New("session already opened")
)

// Close reasons reported on the lifecycle channel.
const (
	ReasonClientShutdown  = "client shutdown"
	ReasonConnectFailed   = "connect failed"
	ReasonTransportError  = "transport error"
	ReasonLivenessTimeout = "liveness timeout"
)

// LifecycleKind distinguishes lifecycle notifications.
type LifecycleKind int

const (
	LifecycleOpened LifecycleKind = iota
	LifecycleClosed
)

// Lifecycle is an asynchronous lifecycle notification. A session emits at
// most one Opened and exactly one Closed after Open is called.
type Lifecycle struct {
	Kind   LifecycleKind
	Reason string // Closed only
	Err    error  // Closed only; nil on deliberate close
}

// Inbound carries one inbound frame, or the decode error for a frame that
// could not be parsed. Err being non-nil means Frame is zero.
type Inbound struct {
	Frame frame.Frame
	Err   error
}

// Config configures a single session.
type Config struct {
	URL              string        // WebSocket URL of the data source
	Token            string        // Pre-acquired bearer credential ("" = no auth)
	HandshakeTimeout time.Duration // Dial handshake deadline
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Inbound channel buffer size
}

// Stats are per-session frame counters.
type Stats struct {
	FramesIn  int64
	FramesOut int64
}

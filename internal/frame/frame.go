package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrDecode marks any failure to parse bytes into a Frame.
// Callers match it with errors.Is.
var ErrDecode = errors.New("frame decode failed")

// HeartbeatType is the reserved frame type for liveness frames.
const HeartbeatType = "heartbeat"

// Frame is the typed envelope exchanged over a connection.
type Frame struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Encode builds the wire bytes for a frame of the given type, stamping the
// timestamp with the current time. The payload is marshaled as-is; nil is a
// valid (absent) payload.
func Encode(frameType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = data
	}

	f := Frame{
		Type:      frameType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}
	return json.Marshal(f)
}

// Decode parses wire bytes into a Frame. It is pure and stateless; malformed
// input yields an error wrapping ErrDecode, never a panic.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", ErrDecode)
	}
	return f, nil
}

// Heartbeat builds the wire bytes for a liveness frame.
func Heartbeat() ([]byte, error) {
	return Encode(HeartbeatType, map[string]int64{
		"timestamp": time.Now().UnixMilli(),
	})
}

package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultBufferSize           = 64
)

// ApplyDefaults fills in zero-valued optional fields. A negative
// MaxReconnectAttempts is preserved (unbounded retries), as is a zero
// LivenessTimeout (liveness checking disabled).
func (c *Config) ApplyDefaults() {
	p := &c.Policy
	if p.ReconnectInterval == 0 {
		p.ReconnectInterval = DefaultReconnectInterval
	}
	if p.MaxReconnectAttempts == 0 {
		p.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if p.HeartbeatInterval == 0 {
		p.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if p.HandshakeTimeout == 0 {
		p.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if p.WriteTimeout == 0 {
		p.WriteTimeout = DefaultWriteTimeout
	}
	if p.BufferSize == 0 {
		p.BufferSize = DefaultBufferSize
	}
}

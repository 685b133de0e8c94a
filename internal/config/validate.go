package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Endpoint.URL == "" {
		return errors.New("endpoint.url is required")
	}
	u, err := url.Parse(c.Endpoint.URL)
	if err != nil {
		return fmt.Errorf("endpoint.url is invalid: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("endpoint.url scheme must be ws or wss, got %q", u.Scheme)
	}

	p := c.Policy
	if p.ReconnectInterval <= 0 {
		return errors.New("policy.reconnect_interval must be > 0")
	}
	if p.HeartbeatInterval <= 0 {
		return errors.New("policy.heartbeat_interval must be > 0")
	}
	if p.LivenessTimeout < 0 {
		return errors.New("policy.liveness_timeout must be >= 0")
	}
	if p.LivenessTimeout > 0 && p.LivenessTimeout <= p.HeartbeatInterval {
		return fmt.Errorf("policy.liveness_timeout (%v) must exceed heartbeat_interval (%v)",
			p.LivenessTimeout, p.HeartbeatInterval)
	}
	if p.HandshakeTimeout <= 0 {
		return errors.New("policy.handshake_timeout must be > 0")
	}
	if p.WriteTimeout <= 0 {
		return errors.New("policy.write_timeout must be > 0")
	}
	if p.BufferSize < 1 {
		return errors.New("policy.buffer_size must be >= 1")
	}

	return nil
}

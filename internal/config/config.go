package config

import "time"

// Config is the root configuration for one connection manager.
type Config struct {
	Endpoint Endpoint `yaml:"endpoint"`
	Policy   Policy   `yaml:"policy"`
}

// Endpoint identifies the data source to connect to. Immutable for the
// lifetime of one manager instance.
type Endpoint struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"` // pre-acquired credential, passed as a bearer header
}

// Policy holds connection maintenance settings.
type Policy struct {
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // negative = unbounded
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	LivenessTimeout      time.Duration `yaml:"liveness_timeout"` // 0 = disabled
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
}

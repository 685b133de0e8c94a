// Package config loads and validates connection manager configuration.
//
// Configuration is YAML with ${VAR} environment variable expansion. Load,
// default application, and validation are separate steps so callers can
// compose them; LoadAndValidate does all three.
package config

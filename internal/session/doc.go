// Package session implements a single physical connection to a data source.
//
// A Session represents exactly one connection attempt and its data stream.
// It drives the per-connection state machine
// (Idle -> Connecting -> Open -> Closing -> Closed), decodes inbound frames,
// and reports lifecycle changes to its owner over channels. Sessions are
// never reused: once Closed, the owner builds a replacement.
package session

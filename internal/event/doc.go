// Package event implements synchronous fan-out of connection events to
// subscribers. Events form a closed set of kinds (connected, disconnected,
// message, error); subscription is by event name, including per-frame-type
// scoping via "message:<type>" alongside the catch-all "message".
package event

// Package manager implements the realtime connection manager: it owns at
// most one live session to a data source, supervises reconnection after
// unexpected closures under a bounded retry budget, runs the heartbeat
// monitor while the session is open, and fans typed events out to
// subscribers.
//
// A Manager is an explicitly constructed value; independent managers for
// different data sources run in parallel without shared state.
package manager

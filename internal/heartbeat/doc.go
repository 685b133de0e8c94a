// Package heartbeat keeps an open session alive by sending periodic
// liveness frames, and can optionally flag a peer that has gone silent.
package heartbeat

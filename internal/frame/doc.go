// Package frame implements the wire envelope exchanged with a data source.
//
// Every message is a JSON object with three fields:
//   - type: string identifier routing the message
//   - payload: arbitrary structured value, opaque to this layer
//   - timestamp: producer-assigned, milliseconds since epoch
//
// Heartbeat frames use type "heartbeat" with payload {"timestamp": <ms>}.
package frame

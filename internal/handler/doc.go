// Package handler implements the packetflow HTTP API.
//
// # Handlers
//
// SketchHandler serves the controls every sketch shares (snapshot, reset,
// pause, speed) plus the sketch-specific ones (max packets, manual loss),
// addressed by sketch name.
//
// TopologyHandler exports and replaces the packet-flow topology, expands
// routes, injects packets and reads the delivery log.
//
// Middleware provides panic recovery, CORS and request logging.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201,
// 202). Error responses return JSON with {error, details} structure: unknown
// sketches are 404, rejected input is 400.
//
// # Server-Sent Events
//
// The /events endpoint streams frame snapshots and lifecycle events from the
// hub.
package handler

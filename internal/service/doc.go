// Package service hosts the packetflow sketches behind a concurrency-safe API.
//
// # Sketches
//
// PacketFlowService wraps the packet simulation: it tags each run with an
// xid, forwards spawn and delivery events to the EventBus and records
// deliveries in the repository.
//
// CongestionService wraps the congestion window model and accepts manual
// losses.
//
// # Runner
//
// Runner owns the frame clock. Every tick it steps each sketch and publishes
// a frame event carrying all snapshots. Control operations are addressed by
// sketch name; operations a sketch does not implement fail with
// ErrUnsupported.
//
// # Event System
//
// All services publish events via EventBus for real-time updates to connected
// clients via Server-Sent Events (SSE).
package service

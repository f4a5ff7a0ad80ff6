// Package repository defines the delivery log interface for packetflow.
//
// Every packet that reaches its destination is recorded as a Delivery,
// tagged with the run it belongs to. A run starts when a simulation is
// created and again on every reset, so statistics never mix traffic from
// different topologies or speeds.
//
// # SQLite Implementation
//
// The sqlite subpackage buffers deliveries in memory and writes them in a
// single transaction once the batch is full, when Flush or Close is called,
// and when the process exits. Reads flush first so callers always see what
// has been recorded.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository

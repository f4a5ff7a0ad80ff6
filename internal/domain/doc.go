// Package domain defines the core types of the packet-flow diagrams.
//
// # Core Types
//
// Node is a fixed point of the diagram (a router or a switch) with a canvas
// position.
//
// Edge is an undirected link between two nodes. Its weight is a display
// label; routing does not consult it.
//
// Topology is the validated, immutable graph. Exactly one node is the hub
// and the hub is adjacent to every other node, which is what lets the hub
// routing rule reach any destination in at most two hops.
//
// Packet is the animated token moving across the topology, with its path
// history and display color.
//
// Graph is the renderer-facing view of a Topology.
//
// # Design Principles
//
// - Immutable value objects where possible
// - No I/O and no dependencies outside the standard library
// - Validation failures are sentinel errors wrapping ErrInvalidTopology
package domain

package sim

import "packetflow/internal/domain"

// EventKind identifies a packet lifecycle event
type EventKind string

const (
	EventSpawned   EventKind = "packet_spawned"
	EventHopped    EventKind = "packet_hopped"
	EventDelivered EventKind = "packet_delivered"
)

// Event reports a packet lifecycle change. Packet is a copy taken at the
// moment of the event.
type Event struct {
	Kind   EventKind     `json:"kind"`
	Frame  int64         `json:"frame"`
	Packet domain.Packet `json:"packet"`
}

// Listener receives events synchronously from inside Step, Tick and Spawn.
// It must not call back into the simulation.
type Listener func(Event)

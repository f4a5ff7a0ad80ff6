package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventFrame             EventType = "frame"
	EventPacketSpawned     EventType = "packet_spawned"
	EventPacketDelivered   EventType = "packet_delivered"
	EventSketchReset       EventType = "sketch_reset"
	EventSketchPaused      EventType = "sketch_paused"
	EventSpeedChanged      EventType = "speed_changed"
	EventMaxPacketsChanged EventType = "max_packets_changed"
	EventLossScheduled     EventType = "loss_scheduled"
	EventTopologyReloaded  EventType = "topology_reloaded"
	EventNetworkSwitched   EventType = "network_switched"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Sketch  string      `json:"sketch,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventScope returns the sketch the event belongs to; frames have none
func (e Event) EventScope() string {
	return e.Sketch
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber. The channel is not closed.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers. A nil bus drops the event.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

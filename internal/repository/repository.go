package repository

import (
	"context"
	"time"
)

// Delivery is one packet that reached its destination
type Delivery struct {
	RunID          string    `json:"run_id"`
	PacketID       int       `json:"packet_id"`
	Source         string    `json:"source"`
	Destination    string    `json:"destination"`
	Path           []string  `json:"path"`
	SpawnedFrame   int64     `json:"spawned_frame"`
	DeliveredFrame int64     `json:"delivered_frame"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Hops returns the number of edges the packet crossed
func (d Delivery) Hops() int {
	if len(d.Path) == 0 {
		return 0
	}
	return len(d.Path) - 1
}

// FramesInFlight returns how long the packet was live
func (d Delivery) FramesInFlight() int64 {
	return d.DeliveredFrame - d.SpawnedFrame
}

// Stats summarizes the deliveries of one run
type Stats struct {
	RunID      string         `json:"run_id"`
	Deliveries int            `json:"deliveries"`
	MeanHops   float64        `json:"mean_hops"`
	MeanFrames float64        `json:"mean_frames"`
	MaxHops    int            `json:"max_hops"`
	ByPair     map[string]int `json:"by_pair"` // "A->C" => count
}

// PairKey formats the ByPair key for a source and destination
func PairKey(source, destination string) string {
	return source + "->" + destination
}

// Repository defines the interface for delivery log access
type Repository interface {
	// RecordDelivery queues d for writing
	RecordDelivery(ctx context.Context, d Delivery) error

	// ListDeliveries returns the most recent deliveries first. An empty runID
	// lists every run; limit <= 0 applies a default.
	ListDeliveries(ctx context.Context, runID string, limit int) ([]Delivery, error)

	// Stats summarizes one run, or every run when runID is empty
	Stats(ctx context.Context, runID string) (Stats, error)

	// Flush writes any queued deliveries
	Flush(ctx context.Context) error

	// Close flushes and releases resources
	Close() error
}

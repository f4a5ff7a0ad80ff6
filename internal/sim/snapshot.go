package sim

import "packetflow/internal/domain"

// Snapshot is everything a renderer needs to draw one frame
type Snapshot struct {
	Frame        int64           `json:"frame"`
	Running      bool            `json:"running"`
	Speed        float64         `json:"speed"`
	MaxPackets   int             `json:"max_packets"`
	LivePackets  int             `json:"live_packets"`
	SpawnPeriod  int             `json:"spawn_period"`
	PendingSeeds int             `json:"pending_seeds"`
	Graph        *domain.Graph   `json:"graph"`
	Packets      []domain.Packet `json:"packets"`
}

// Snapshot copies the current state. The Graph is shared and must be
// treated as read-only.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Frame:        s.frame,
		Running:      s.running,
		Speed:        s.speed,
		MaxPackets:   s.maxPackets,
		LivePackets:  len(s.packets),
		SpawnPeriod:  s.SpawnPeriod(),
		PendingSeeds: len(s.seeds),
		Graph:        s.graph,
		Packets:      s.Packets(),
	}
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"packetflow/internal/domain"
	"packetflow/internal/repository"
	"packetflow/internal/routing"
	"packetflow/internal/sim"
)

// PacketFlowService hosts the packet simulation. It stamps every run with an
// id, forwards lifecycle events to the bus and records deliveries.
type PacketFlowService struct {
	mu       sync.Mutex
	sim      *sim.Simulation
	runID    string
	counters Counters

	repo     repository.Repository
	eventBus *EventBus
	logger   *zap.Logger
}

// Counters tally packet lifecycle events for the current run
type Counters struct {
	Spawned   int `json:"spawned"`
	Delivered int `json:"delivered"`
	Hops      int `json:"hops"`
}

// PacketFlowSnapshot is the packet simulation snapshot tagged with its run
type PacketFlowSnapshot struct {
	sim.Snapshot
	RunID    string   `json:"run_id"`
	Counters Counters `json:"counters"`
}

// DeliveryPayload is published with packet_spawned and packet_delivered
type DeliveryPayload struct {
	RunID  string        `json:"run_id"`
	Frame  int64         `json:"frame"`
	Packet domain.Packet `json:"packet"`
}

// NewPacketFlowService creates the simulation over topo. repo may be nil to
// disable the delivery log.
func NewPacketFlowService(topo *domain.Topology, cfg sim.Config, repo repository.Repository, eventBus *EventBus, logger *zap.Logger, opts ...sim.Option) (*PacketFlowService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PacketFlowService{
		runID:    xid.New().String(),
		repo:     repo,
		eventBus: eventBus,
		logger:   logger.Named(SketchPacketFlow),
	}

	opts = append(opts, sim.WithListener(s.onEvent))
	simulation, err := sim.New(topo, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create simulation: %w", err)
	}
	s.sim = simulation

	s.logger.Info("simulation started",
		zap.String("run_id", s.runID),
		zap.Int("nodes", len(topo.Nodes())),
		zap.Float64("speed", cfg.Speed),
		zap.Int("max_packets", cfg.MaxPackets))
	return s, nil
}

// onEvent runs inside Step with s.mu held
func (s *PacketFlowService) onEvent(ev sim.Event) {
	switch ev.Kind {
	case sim.EventSpawned:
		s.counters.Spawned++
		s.eventBus.Publish(Event{
			Type:    EventPacketSpawned,
			Sketch:  SketchPacketFlow,
			Payload: DeliveryPayload{RunID: s.runID, Frame: ev.Frame, Packet: ev.Packet},
		})

	case sim.EventHopped:
		s.counters.Hops++

	case sim.EventDelivered:
		s.counters.Hops++
		s.counters.Delivered++
		s.eventBus.Publish(Event{
			Type:    EventPacketDelivered,
			Sketch:  SketchPacketFlow,
			Payload: DeliveryPayload{RunID: s.runID, Frame: ev.Frame, Packet: ev.Packet},
		})
		s.record(ev)
	}
}

func (s *PacketFlowService) record(ev sim.Event) {
	if s.repo == nil {
		return
	}
	p := ev.Packet
	err := s.repo.RecordDelivery(context.Background(), repository.Delivery{
		RunID:          s.runID,
		PacketID:       p.ID,
		Source:         p.Source,
		Destination:    p.Destination,
		Path:           p.Path,
		SpawnedFrame:   p.SpawnedFrame,
		DeliveredFrame: ev.Frame,
		RecordedAt:     time.Now(),
	})
	if err != nil {
		s.logger.Warn("record delivery failed", zap.Int("packet_id", p.ID), zap.Error(err))
	}
}

// Name returns the sketch name
func (s *PacketFlowService) Name() string {
	return SketchPacketFlow
}

// Step advances the simulation one frame
func (s *PacketFlowService) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sim.Step()
}

// Reset clears the packets and starts a new run
func (s *PacketFlowService) Reset() {
	s.mu.Lock()
	s.resetLocked()
	runID := s.runID
	s.mu.Unlock()

	s.eventBus.Publish(Event{
		Type:    EventSketchReset,
		Sketch:  SketchPacketFlow,
		Payload: map[string]string{"run_id": runID},
	})
}

func (s *PacketFlowService) resetLocked() {
	s.sim.Reset()
	s.runID = xid.New().String()
	s.counters = Counters{}
	s.logger.Info("simulation reset", zap.String("run_id", s.runID))
}

// TogglePause pauses or resumes packet movement and returns the new state
func (s *PacketFlowService) TogglePause() bool {
	s.mu.Lock()
	running := s.sim.TogglePause()
	s.mu.Unlock()

	s.eventBus.Publish(Event{
		Type:    EventSketchPaused,
		Sketch:  SketchPacketFlow,
		Payload: map[string]bool{"running": running},
	})
	return running
}

// SetSpeed changes the speed multiplier
func (s *PacketFlowService) SetSpeed(v float64) error {
	s.mu.Lock()
	err := s.sim.SetSpeed(v)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventSpeedChanged,
		Sketch:  SketchPacketFlow,
		Payload: map[string]float64{"speed": v},
	})
	return nil
}

// SetMaxPackets changes the periodic spawn cap
func (s *PacketFlowService) SetMaxPackets(n int) error {
	s.mu.Lock()
	err := s.sim.SetMaxPackets(n)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventMaxPacketsChanged,
		Sketch:  SketchPacketFlow,
		Payload: map[string]int{"max_packets": n},
	})
	return nil
}

// Spawn injects a packet between two non-hub nodes
func (s *PacketFlowService) Spawn(source, destination string) (domain.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.SpawnBetween(source, destination)
}

// SetTopology replaces the topology and starts a new run
func (s *PacketFlowService) SetTopology(topo *domain.Topology) error {
	s.mu.Lock()
	if err := s.sim.SetTopology(topo); err != nil {
		s.mu.Unlock()
		return err
	}
	// SetTopology already reset the simulation; only the run changes here
	s.runID = xid.New().String()
	s.counters = Counters{}
	runID := s.runID
	graph := domain.DeriveGraph(topo)
	s.mu.Unlock()

	s.logger.Info("topology replaced",
		zap.String("run_id", runID),
		zap.String("hub", topo.Hub()),
		zap.Int("nodes", len(topo.Nodes())))
	s.eventBus.Publish(Event{
		Type:    EventTopologyReloaded,
		Sketch:  SketchPacketFlow,
		Payload: graph,
	})
	return nil
}

// Topology returns the active topology
func (s *PacketFlowService) Topology() *domain.Topology {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Topology()
}

// Route returns the hop sequence a packet from src to dst would follow
func (s *PacketFlowService) Route(src, dst string) ([]string, error) {
	topo := s.Topology()
	for _, id := range []string{src, dst} {
		if _, ok := topo.Node(id); !ok {
			return nil, fmt.Errorf("%w %q", domain.ErrUnknownNode, id)
		}
	}
	return routing.Route(routing.NewHubRouter(topo.Hub()), src, dst)
}

// RunID returns the id of the current run
func (s *PacketFlowService) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Status returns the sketch summary
func (s *PacketFlowService) Status() SketchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SketchStatus{
		Name:    SketchPacketFlow,
		Running: s.sim.Running(),
		Speed:   s.sim.Speed(),
		Frame:   s.sim.Frame(),
	}
}

// Snapshot returns the current frame as a PacketFlowSnapshot
func (s *PacketFlowService) Snapshot() any {
	return s.PacketFlowSnapshot()
}

// PacketFlowSnapshot returns the current frame
func (s *PacketFlowService) PacketFlowSnapshot() PacketFlowSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PacketFlowSnapshot{
		Snapshot: s.sim.Snapshot(),
		RunID:    s.runID,
		Counters: s.counters,
	}
}

// Deliveries lists recorded deliveries, newest first. Only the current run
// is listed unless allRuns is set.
func (s *PacketFlowService) Deliveries(ctx context.Context, limit int, allRuns bool) ([]repository.Delivery, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: delivery log disabled", ErrUnsupported)
	}
	runID := ""
	if !allRuns {
		runID = s.RunID()
	}
	return s.repo.ListDeliveries(ctx, runID, limit)
}

// DeliveryStats summarizes the recorded deliveries of the current run, or of
// every run when allRuns is set
func (s *PacketFlowService) DeliveryStats(ctx context.Context, allRuns bool) (repository.Stats, error) {
	if s.repo == nil {
		return repository.Stats{}, fmt.Errorf("%w: delivery log disabled", ErrUnsupported)
	}
	runID := ""
	if !allRuns {
		runID = s.RunID()
	}
	return s.repo.Stats(ctx, runID)
}

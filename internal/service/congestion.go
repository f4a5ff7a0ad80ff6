package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"packetflow/internal/congestion"
)

// CongestionService hosts the congestion window model
type CongestionService struct {
	mu       sync.Mutex
	model    *congestion.Model
	eventBus *EventBus
	logger   *zap.Logger
}

// NewCongestionService creates the model
func NewCongestionService(cfg congestion.Config, eventBus *EventBus, logger *zap.Logger) (*CongestionService, error) {
	model, err := congestion.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create congestion model: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CongestionService{
		model:    model,
		eventBus: eventBus,
		logger:   logger.Named(SketchTCPCongestion),
	}, nil
}

// Name returns the sketch name
func (s *CongestionService) Name() string {
	return SketchTCPCongestion
}

// Step advances the model one frame
func (s *CongestionService) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Step()
}

// Reset starts the model over. The paused state is kept.
func (s *CongestionService) Reset() {
	s.mu.Lock()
	s.model.Reset()
	s.mu.Unlock()

	s.eventBus.Publish(Event{Type: EventSketchReset, Sketch: SketchTCPCongestion})
}

// TogglePause pauses or resumes the model and returns the new state
func (s *CongestionService) TogglePause() bool {
	s.mu.Lock()
	running := s.model.TogglePause()
	s.mu.Unlock()

	s.eventBus.Publish(Event{
		Type:    EventSketchPaused,
		Sketch:  SketchTCPCongestion,
		Payload: map[string]bool{"running": running},
	})
	return running
}

// SetSpeed changes the speed multiplier
func (s *CongestionService) SetSpeed(v float64) error {
	s.mu.Lock()
	err := s.model.SetSpeed(v)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventSpeedChanged,
		Sketch:  SketchTCPCongestion,
		Payload: map[string]float64{"speed": v},
	})
	return nil
}

// AddLoss schedules a manual timeout
func (s *CongestionService) AddLoss() congestion.LossEvent {
	s.mu.Lock()
	ev := s.model.AddLoss()
	s.mu.Unlock()

	s.logger.Debug("manual loss scheduled", zap.Float64("time", ev.Time))
	s.eventBus.Publish(Event{
		Type:    EventLossScheduled,
		Sketch:  SketchTCPCongestion,
		Payload: ev,
	})
	return ev
}

// Status returns the sketch summary
func (s *CongestionService) Status() SketchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.model.Snapshot()
	return SketchStatus{
		Name:    SketchTCPCongestion,
		Running: snap.Running,
		Speed:   snap.Speed,
		Frame:   snap.Frame,
	}
}

// Snapshot returns the current congestion.Snapshot
func (s *CongestionService) Snapshot() any {
	return s.CongestionSnapshot()
}

// CongestionSnapshot returns the current model state
func (s *CongestionService) CongestionSnapshot() congestion.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Snapshot()
}

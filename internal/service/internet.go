package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"packetflow/internal/internet"
)

// NetworkSwitch is the payload of network_switched events
type NetworkSwitch struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// InternetService hosts the switchable internet topology model
type InternetService struct {
	mu       sync.Mutex
	model    *internet.Model
	eventBus *EventBus
	logger   *zap.Logger
}

// NewInternetService creates the model
func NewInternetService(cfg internet.Config, eventBus *EventBus, logger *zap.Logger, opts ...internet.Option) (*InternetService, error) {
	model, err := internet.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create internet topology model: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InternetService{
		model:    model,
		eventBus: eventBus,
		logger:   logger.Named(SketchInternetTopology),
	}, nil
}

// Name returns the sketch name
func (s *InternetService) Name() string {
	return SketchInternetTopology
}

// Step advances the model one frame
func (s *InternetService) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Step()
}

// Reset clears the packets and reseeds. The network is kept.
func (s *InternetService) Reset() {
	s.mu.Lock()
	s.model.Reset()
	s.mu.Unlock()

	s.eventBus.Publish(Event{Type: EventSketchReset, Sketch: SketchInternetTopology})
}

// TogglePause pauses or resumes the model and returns the new state
func (s *InternetService) TogglePause() bool {
	s.mu.Lock()
	running := s.model.TogglePause()
	s.mu.Unlock()

	s.eventBus.Publish(Event{
		Type:    EventSketchPaused,
		Sketch:  SketchInternetTopology,
		Payload: map[string]bool{"running": running},
	})
	return running
}

// SetSpeed changes the speed multiplier for packets spawned from now on
func (s *InternetService) SetSpeed(v float64) error {
	s.mu.Lock()
	err := s.model.SetSpeed(v)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventSpeedChanged,
		Sketch:  SketchInternetTopology,
		Payload: map[string]float64{"speed": v},
	})
	return nil
}

// SwitchNetwork starts the transition to the named network, or to the next
// one when name is empty
func (s *InternetService) SwitchNetwork(name string) error {
	s.mu.Lock()
	from := s.model.Network().Name
	err := s.model.Switch(name)
	snap := s.model.Snapshot()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if snap.SwitchingTo == "" {
		return nil
	}

	s.logger.Info("network switch started",
		zap.String("from", from),
		zap.String("to", snap.SwitchingTo))
	s.eventBus.Publish(Event{
		Type:    EventNetworkSwitched,
		Sketch:  SketchInternetTopology,
		Payload: NetworkSwitch{From: from, To: snap.SwitchingTo},
	})
	return nil
}

// Status returns the sketch summary
func (s *InternetService) Status() SketchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SketchStatus{
		Name:    SketchInternetTopology,
		Running: s.model.Running(),
		Speed:   s.model.Speed(),
		Frame:   s.model.Frame(),
	}
}

// Snapshot returns the current internet.Snapshot
func (s *InternetService) Snapshot() any {
	return s.InternetSnapshot()
}

// InternetSnapshot returns the current model state
func (s *InternetService) InternetSnapshot() internet.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Snapshot()
}

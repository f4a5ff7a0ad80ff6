package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"packetflow/internal/congestion"
)

// FramePayload is published once per frame with every sketch's snapshot
type FramePayload struct {
	Frame    int64          `json:"frame"`
	Sketches map[string]any `json:"sketches"`
}

// Runner drives the hosted sketches from one frame clock and routes the
// control operations to them by name
type Runner struct {
	mu       sync.RWMutex
	sketches map[string]Sketch
	order    []string

	interval time.Duration
	eventBus *EventBus
	logger   *zap.Logger
	frame    int64
}

// NewRunner creates a runner stepping every interval
func NewRunner(interval time.Duration, eventBus *EventBus, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Runner{
		sketches: make(map[string]Sketch),
		interval: interval,
		eventBus: eventBus,
		logger:   logger.Named("runner"),
	}
}

// Register adds a sketch to the runner
func (r *Runner) Register(s Sketch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.sketches[name]; exists {
		return fmt.Errorf("sketch %s already registered", name)
	}
	r.sketches[name] = s
	r.order = append(r.order, name)
	sort.Strings(r.order)
	r.logger.Info("registered sketch", zap.String("sketch", name))
	return nil
}

// Get looks up a sketch by name
func (r *Runner) Get(name string) (Sketch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sketches[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSketch, name)
	}
	return s, nil
}

// List returns the status of every sketch, sorted by name
func (r *Runner) List() []SketchStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SketchStatus, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sketches[name].Status())
	}
	return out
}

func (r *Runner) all() []Sketch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Sketch, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sketches[name])
	}
	return out
}

// Run steps every sketch once per interval and publishes a frame event,
// until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("frame driver started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ticker.C:
			r.Tick()
		case <-ctx.Done():
			r.logger.Info("frame driver stopped", zap.Int64("frames", r.Frame()))
			return ctx.Err()
		}
	}
}

// Tick steps every sketch once and publishes the resulting frame
func (r *Runner) Tick() {
	sketches := r.all()
	payload := FramePayload{Sketches: make(map[string]any, len(sketches))}
	for _, s := range sketches {
		s.Step()
		payload.Sketches[s.Name()] = s.Snapshot()
	}

	r.mu.Lock()
	r.frame++
	payload.Frame = r.frame
	r.mu.Unlock()

	r.eventBus.Publish(Event{Type: EventFrame, Payload: payload})
}

// StepN steps every sketch n times without publishing frames
func (r *Runner) StepN(n int) {
	sketches := r.all()
	for i := 0; i < n; i++ {
		for _, s := range sketches {
			s.Step()
		}
	}
	r.mu.Lock()
	r.frame += int64(n)
	r.mu.Unlock()
}

// Frame returns the number of frames driven
func (r *Runner) Frame() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frame
}

// Snapshot returns the named sketch's render state
func (r *Runner) Snapshot(name string) (any, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Reset resets the named sketch
func (r *Runner) Reset(name string) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}
	s.Reset()
	return nil
}

// TogglePause toggles the named sketch and returns whether it now runs
func (r *Runner) TogglePause(name string) (bool, error) {
	s, err := r.Get(name)
	if err != nil {
		return false, err
	}
	return s.TogglePause(), nil
}

// SetSpeed sets the named sketch's speed
func (r *Runner) SetSpeed(name string, v float64) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}
	return s.SetSpeed(v)
}

// SetMaxPackets sets the packet cap of a sketch that has one
func (r *Runner) SetMaxPackets(name string, n int) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}
	limiter, ok := s.(PacketLimiter)
	if !ok {
		return fmt.Errorf("%w: %s has no packet cap", ErrUnsupported, name)
	}
	return limiter.SetMaxPackets(n)
}

// AddLoss schedules a manual loss on a sketch that accepts them
func (r *Runner) AddLoss(name string) (congestion.LossEvent, error) {
	s, err := r.Get(name)
	if err != nil {
		return congestion.LossEvent{}, err
	}
	injector, ok := s.(LossInjector)
	if !ok {
		return congestion.LossEvent{}, fmt.Errorf("%w: %s does not take manual losses", ErrUnsupported, name)
	}
	return injector.AddLoss(), nil
}

// SwitchNetwork switches the network of a sketch that has more than one
func (r *Runner) SwitchNetwork(name, network string) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}
	switcher, ok := s.(NetworkSwitcher)
	if !ok {
		return fmt.Errorf("%w: %s has a single network", ErrUnsupported, name)
	}
	return switcher.SwitchNetwork(network)
}

// Package congestion models a TCP congestion window for the companion
// diagram: slow start, congestion avoidance and timeouts injected at fixed
// or manual times.
package congestion

import (
	"errors"
	"fmt"
	"math"
)

// State is the congestion control phase
type State string

const (
	StateSlowStart           State = "slow_start"
	StateCongestionAvoidance State = "congestion_avoidance"
)

var (
	ErrInvalidSpeed  = errors.New("speed must be a positive finite number")
	ErrInvalidConfig = errors.New("invalid congestion config")
)

// Config holds the model constants
type Config struct {
	InitialCwnd     float64
	InitialSSThresh float64
	MinSSThresh     float64
	// TimeStep is the model time added per frame at speed 1
	TimeStep float64
	// SlowStartGrowth and AvoidanceGrowth are the per-frame cwnd increments
	SlowStartGrowth float64
	AvoidanceGrowth float64
	Speed           float64
	// HistoryLimit caps the recorded samples; one sample every SampleEvery frames
	HistoryLimit int
	SampleEvery  int
	// Horizon is the model time after which the model starts over
	Horizon float64
	// LossTimes are the timeouts scheduled on every (re)start
	LossTimes []float64
	// ManualLossDelay is how far ahead AddLoss schedules a timeout
	ManualLossDelay float64
}

// DefaultConfig returns the diagram's constants
func DefaultConfig() Config {
	return Config{
		InitialCwnd:     1,
		InitialSSThresh: 16,
		MinSSThresh:     2,
		TimeStep:        0.5,
		SlowStartGrowth: 0.02,
		AvoidanceGrowth: 0.005,
		Speed:           1,
		HistoryLimit:    400,
		SampleEvery:     2,
		Horizon:         300,
		LossTimes:       []float64{50, 120, 200},
		ManualLossDelay: 10,
	}
}

// Validate checks the config for values the model cannot run with
func (c Config) Validate() error {
	if c.InitialCwnd <= 0 || c.InitialSSThresh <= 0 || c.MinSSThresh <= 0 {
		return fmt.Errorf("%w: window sizes must be positive", ErrInvalidConfig)
	}
	if c.TimeStep <= 0 || c.Horizon <= 0 {
		return fmt.Errorf("%w: time step and horizon must be positive", ErrInvalidConfig)
	}
	if c.SlowStartGrowth < 0 || c.AvoidanceGrowth < 0 {
		return fmt.Errorf("%w: growth must not be negative", ErrInvalidConfig)
	}
	if c.HistoryLimit < 1 || c.SampleEvery < 1 {
		return fmt.Errorf("%w: history limit and sample interval must be positive", ErrInvalidConfig)
	}
	if err := validateSpeed(c.Speed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validateSpeed(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, v)
	}
	return nil
}

// LossEvent is a timeout scheduled at a model time
type LossEvent struct {
	Time      float64 `json:"time"`
	Label     string  `json:"label"`
	Triggered bool    `json:"triggered"`
}

// Sample is one point of the cwnd history
type Sample struct {
	Time     float64 `json:"time"`
	Cwnd     float64 `json:"cwnd"`
	SSThresh float64 `json:"ssthresh"`
	State    State   `json:"state"`
}

// Model is the congestion window state machine. It is not safe for
// concurrent use.
type Model struct {
	cfg Config

	cwnd     float64
	ssthresh float64
	state    State
	time     float64
	history  []Sample
	events   []LossEvent
	running  bool
	speed    float64
	frame    int64
	restarts int
}

// New creates a running model with the scheduled losses queued
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		cfg:     cfg,
		running: true,
		speed:   cfg.Speed,
	}
	m.restart()
	return m, nil
}

func (m *Model) restart() {
	m.cwnd = m.cfg.InitialCwnd
	m.ssthresh = m.cfg.InitialSSThresh
	m.state = StateSlowStart
	m.time = 0
	m.history = m.history[:0]
	m.events = m.events[:0]
	for _, t := range m.cfg.LossTimes {
		m.events = append(m.events, LossEvent{Time: t, Label: "Packet Loss"})
	}
}

// Step runs one host frame. The frame counter advances while paused so the
// sampling cadence stays tied to frames.
func (m *Model) Step() {
	m.frame++
	if !m.running {
		return
	}

	m.time += m.cfg.TimeStep * m.speed

	for i := range m.events {
		ev := &m.events[i]
		if !ev.Triggered && m.time >= ev.Time {
			m.timeout()
			ev.Triggered = true
		}
	}

	switch m.state {
	case StateSlowStart:
		m.cwnd += m.cfg.SlowStartGrowth * m.speed
		if m.cwnd >= m.ssthresh {
			m.state = StateCongestionAvoidance
		}
	case StateCongestionAvoidance:
		m.cwnd += m.cfg.AvoidanceGrowth * m.speed
	}

	if m.frame%int64(m.cfg.SampleEvery) == 0 {
		m.history = append(m.history, Sample{
			Time:     m.time,
			Cwnd:     m.cwnd,
			SSThresh: m.ssthresh,
			State:    m.state,
		})
		if over := len(m.history) - m.cfg.HistoryLimit; over > 0 {
			m.history = append(m.history[:0], m.history[over:]...)
		}
	}

	if m.time > m.cfg.Horizon {
		m.restarts++
		m.restart()
	}
}

// timeout halves the threshold (with a floor) and drops back to slow start
func (m *Model) timeout() {
	m.ssthresh = math.Max(m.cwnd/2, m.cfg.MinSSThresh)
	m.cwnd = m.cfg.InitialCwnd
	m.state = StateSlowStart
}

// AddLoss schedules a manual timeout shortly after the current time
func (m *Model) AddLoss() LossEvent {
	ev := LossEvent{Time: m.time + m.cfg.ManualLossDelay, Label: "Manual Loss"}
	m.events = append(m.events, ev)
	return ev
}

// Reset starts the model over. Unlike the packet simulation it keeps the
// paused state.
func (m *Model) Reset() {
	m.restart()
}

// TogglePause flips the running flag and returns the new value
func (m *Model) TogglePause() bool {
	m.running = !m.running
	return m.running
}

// Running reports whether Step advances the model
func (m *Model) Running() bool {
	return m.running
}

// SetSpeed replaces the speed multiplier
func (m *Model) SetSpeed(v float64) error {
	if err := validateSpeed(v); err != nil {
		return err
	}
	m.speed = v
	return nil
}

// Speed returns the speed multiplier
func (m *Model) Speed() float64 {
	return m.speed
}

// Cwnd returns the congestion window
func (m *Model) Cwnd() float64 {
	return m.cwnd
}

// SSThresh returns the slow start threshold
func (m *Model) SSThresh() float64 {
	return m.ssthresh
}

// State returns the current phase
func (m *Model) State() State {
	return m.state
}

// Time returns the model time
func (m *Model) Time() float64 {
	return m.time
}

// Snapshot is the renderer view of the model
type Snapshot struct {
	Frame    int64       `json:"frame"`
	Running  bool        `json:"running"`
	Speed    float64     `json:"speed"`
	Time     float64     `json:"time"`
	Cwnd     float64     `json:"cwnd"`
	SSThresh float64     `json:"ssthresh"`
	State    State       `json:"state"`
	Restarts int         `json:"restarts"`
	History  []Sample    `json:"history"`
	Events   []LossEvent `json:"events"`
}

// Snapshot copies the current state
func (m *Model) Snapshot() Snapshot {
	history := make([]Sample, len(m.history))
	copy(history, m.history)
	events := make([]LossEvent, len(m.events))
	copy(events, m.events)

	return Snapshot{
		Frame:    m.frame,
		Running:  m.running,
		Speed:    m.speed,
		Time:     m.time,
		Cwnd:     m.cwnd,
		SSThresh: m.ssthresh,
		State:    m.state,
		Restarts: m.restarts,
		History:  history,
		Events:   events,
	}
}

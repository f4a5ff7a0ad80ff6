package service

import (
	"errors"

	"packetflow/internal/congestion"
)

// Sketch names served by the runner
const (
	SketchPacketFlow       = "packet-flow"
	SketchTCPCongestion    = "tcp-congestion"
	SketchInternetTopology = "internet-topology"
)

var (
	ErrUnknownSketch = errors.New("unknown sketch")
	ErrUnsupported   = errors.New("operation not supported")
)

// Sketch is an animation driven one frame at a time. Implementations
// serialize their own state so Step and the controls may be called from
// different goroutines.
type Sketch interface {
	Name() string
	Step()
	Reset()
	TogglePause() bool
	SetSpeed(v float64) error
	Status() SketchStatus
	// Snapshot returns a detached copy of the render state
	Snapshot() any
}

// PacketLimiter is implemented by sketches with a live packet cap
type PacketLimiter interface {
	SetMaxPackets(n int) error
}

// LossInjector is implemented by sketches that accept manual losses
type LossInjector interface {
	AddLoss() congestion.LossEvent
}

// NetworkSwitcher is implemented by sketches that can change the network
// they draw
type NetworkSwitcher interface {
	SwitchNetwork(name string) error
}

// SketchStatus is the summary listed by the API
type SketchStatus struct {
	Name    string  `json:"name"`
	Running bool    `json:"running"`
	Speed   float64 `json:"speed"`
	Frame   int64   `json:"frame"`
}

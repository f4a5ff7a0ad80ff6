package sim

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidSpeed      = errors.New("speed must be a positive finite number")
	ErrInvalidMaxPackets = errors.New("max packets must not be negative")
	ErrInvalidConfig     = errors.New("invalid simulation config")
)

// Config holds the simulation constants. Frame counts assume the host calls
// Step once per display refresh.
type Config struct {
	// BaseRate is the progress added per tick at speed 1
	BaseRate float64
	// Speed multiplies BaseRate and divides SpawnPeriod
	Speed float64
	// MaxPackets caps periodic spawning
	MaxPackets int
	// SpawnPeriod is the number of frames between periodic spawns at speed 1
	SpawnPeriod int
	// SeedCount packets are spawned on start and on reset, staggered
	SeedCount int
	// SeedStagger is the number of frames between startup seeds
	SeedStagger int
	// ResetStagger is the number of frames between seeds after a reset
	ResetStagger int
}

// DefaultConfig matches the diagram's reference cadence at 60 frames per second
func DefaultConfig() Config {
	return Config{
		BaseRate:     0.02,
		Speed:        1,
		MaxPackets:   10,
		SpawnPeriod:  120,
		SeedCount:    3,
		SeedStagger:  60,
		ResetStagger: 30,
	}
}

// Validate checks the config for values the simulation cannot run with
func (c Config) Validate() error {
	if c.BaseRate <= 0 || math.IsNaN(c.BaseRate) || math.IsInf(c.BaseRate, 0) {
		return fmt.Errorf("%w: base rate %v", ErrInvalidConfig, c.BaseRate)
	}
	if err := validateSpeed(c.Speed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MaxPackets < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidMaxPackets)
	}
	if c.SpawnPeriod < 1 {
		return fmt.Errorf("%w: spawn period %d", ErrInvalidConfig, c.SpawnPeriod)
	}
	if c.SeedCount < 0 || c.SeedStagger < 0 || c.ResetStagger < 0 {
		return fmt.Errorf("%w: negative seed settings", ErrInvalidConfig)
	}
	return nil
}

func validateSpeed(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, v)
	}
	return nil
}

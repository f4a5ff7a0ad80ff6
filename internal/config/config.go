// Package config provides configuration management for packetflow.
//
// Config file locations (priority order):
//  1. $PACKETFLOW_CONFIG
//  2. ./packetflow.yaml
//  3. $XDG_CONFIG_HOME/packetflow/config.yaml
//  4. ~/.config/packetflow/config.yaml
//  5. /etc/packetflow/config.yaml
//
// Fields missing from the file keep their defaults. Command line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"packetflow/internal/congestion"
	"packetflow/internal/internet"
	"packetflow/internal/sim"
)

// ErrInvalid is wrapped by every Validate failure
var ErrInvalid = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the built-in diagram settings
func DefaultConfig() *Config {
	simDefaults := sim.DefaultConfig()
	congDefaults := congestion.DefaultConfig()
	netDefaults := internet.DefaultConfig()

	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            ":3000",
			FPS:             60,
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Simulation: SimulationConfig{
			Speed:          simDefaults.Speed,
			MaxPackets:     simDefaults.MaxPackets,
			BaseRate:       simDefaults.BaseRate,
			SpawnPeriod:    simDefaults.SpawnPeriod,
			SeedCount:      simDefaults.SeedCount,
			SeedDelay:      Duration(time.Second),
			ResetSeedDelay: Duration(500 * time.Millisecond),
		},
		Congestion: CongestionConfig{
			Enabled:   true,
			Speed:     congDefaults.Speed,
			Horizon:   congDefaults.Horizon,
			LossTimes: congDefaults.LossTimes,
		},
		Internet: InternetConfig{
			Enabled:    true,
			Speed:      netDefaults.Speed,
			Network:    netDefaults.Network,
			Transition: Duration(time.Second / 3),
		},
		Topology: TopologyConfig{
			Debounce: Duration(500 * time.Millisecond),
		},
		Recorder: RecorderConfig{
			Enabled:       true,
			Path:          "./packetflow.db",
			BatchSize:     64,
			FlushInterval: Duration(2 * time.Second),
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
		},
	}
}

// applyDefaults fills in values a file can blank out but the program cannot
// run without
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Recorder.Path == "" {
		c.Recorder.Path = "./packetflow.db"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports the first setting the program cannot run with
func (c *Config) Validate() error {
	if c.Server.FPS < 1 {
		return fmt.Errorf("%w: server.fps must be at least 1, got %d", ErrInvalid, c.Server.FPS)
	}
	if err := c.SimConfig().Validate(); err != nil {
		return fmt.Errorf("%w: simulation: %w", ErrInvalid, err)
	}
	if c.Simulation.SeedDelay < 0 || c.Simulation.ResetSeedDelay < 0 {
		return fmt.Errorf("%w: seed delays must not be negative", ErrInvalid)
	}
	if c.Congestion.Enabled {
		if err := c.CongestionConfig().Validate(); err != nil {
			return fmt.Errorf("%w: congestion: %w", ErrInvalid, err)
		}
	}
	if c.Internet.Enabled {
		if err := c.InternetConfig().Validate(); err != nil {
			return fmt.Errorf("%w: internet: %w", ErrInvalid, err)
		}
		if !internet.Known(c.Internet.Network) {
			return fmt.Errorf("%w: internet: unknown network %q", ErrInvalid, c.Internet.Network)
		}
	}
	if c.Recorder.Enabled && c.Recorder.BatchSize < 1 {
		return fmt.Errorf("%w: recorder.batch_size must be at least 1", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// FrameInterval is the wall time between frames
func (c *Config) FrameInterval() time.Duration {
	if c.Server.FPS < 1 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Server.FPS)
}

// framesFor converts a wall delay to whole frames at the configured rate
func (c *Config) framesFor(d Duration) int {
	return int(math.Round(d.Duration().Seconds() * float64(c.Server.FPS)))
}

// SimConfig converts the simulation section to the simulation's own config
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		BaseRate:     c.Simulation.BaseRate,
		Speed:        c.Simulation.Speed,
		MaxPackets:   c.Simulation.MaxPackets,
		SpawnPeriod:  c.Simulation.SpawnPeriod,
		SeedCount:    c.Simulation.SeedCount,
		SeedStagger:  c.framesFor(c.Simulation.SeedDelay),
		ResetStagger: c.framesFor(c.Simulation.ResetSeedDelay),
	}
}

// CongestionConfig converts the congestion section to the model config
func (c *Config) CongestionConfig() congestion.Config {
	cfg := congestion.DefaultConfig()
	cfg.Speed = c.Congestion.Speed
	cfg.Horizon = c.Congestion.Horizon
	cfg.LossTimes = append([]float64(nil), c.Congestion.LossTimes...)
	return cfg
}

// InternetConfig converts the internet section to the model config. Seed
// timing follows the simulation section so both sketches seed together.
func (c *Config) InternetConfig() internet.Config {
	cfg := internet.DefaultConfig()
	cfg.Speed = c.Internet.Speed
	cfg.Network = c.Internet.Network
	cfg.SeedStagger = c.framesFor(c.Simulation.SeedDelay)
	cfg.ResetStagger = c.framesFor(c.Simulation.ResetSeedDelay)
	cfg.TransitionFrames = max(1, c.framesFor(c.Internet.Transition))
	return cfg
}

package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	Congestion CongestionConfig `yaml:"congestion"`
	Internet   InternetConfig   `yaml:"internet"`
	Topology   TopologyConfig   `yaml:"topology"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the HTTP server and frame driver settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	OpenBrowser     bool     `yaml:"open_browser"`
	FPS             int      `yaml:"fps"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// SimulationConfig holds the packet flow parameters
type SimulationConfig struct {
	Speed       float64 `yaml:"speed"`
	MaxPackets  int     `yaml:"max_packets"`
	BaseRate    float64 `yaml:"base_rate"`
	SpawnPeriod int     `yaml:"spawn_period"` // frames at speed 1
	SeedCount   int     `yaml:"seed_count"`
	// SeedDelay spaces the startup seeds, ResetSeedDelay the seeds after a reset
	SeedDelay      Duration `yaml:"seed_delay"`
	ResetSeedDelay Duration `yaml:"reset_seed_delay"`
	RandomSeed     *uint64  `yaml:"random_seed,omitempty"` // nil = seeded from the OS
}

// CongestionConfig holds the congestion window model parameters
type CongestionConfig struct {
	Enabled   bool      `yaml:"enabled"`
	Speed     float64   `yaml:"speed"`
	Horizon   float64   `yaml:"horizon"`
	LossTimes []float64 `yaml:"loss_times"`
}

// InternetConfig holds the switchable internet topology sketch parameters
type InternetConfig struct {
	Enabled bool    `yaml:"enabled"`
	Speed   float64 `yaml:"speed"`
	Network string  `yaml:"network"` // modern or osi
	// Transition is how long a network switch takes
	Transition Duration `yaml:"transition"`
}

// TopologyConfig points at an optional topology file
type TopologyConfig struct {
	Path     string   `yaml:"path,omitempty"` // empty = built-in diagram
	Watch    bool     `yaml:"watch"`
	Debounce Duration `yaml:"debounce"`
}

// RecorderConfig holds delivery log settings
type RecorderConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Path          string   `yaml:"path"`
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// LogConfig controls logger construction
type LogConfig struct {
	Level       string         `yaml:"level"`  // debug, info, warn, error
	Format      string         `yaml:"format"` // console or json
	Outputs     []string       `yaml:"outputs"`
	Development bool           `yaml:"development"`
	Rotation    RotationConfig `yaml:"rotation"`
}

// RotationConfig controls log file rotation for file outputs
type RotationConfig struct {
	Enable     bool   `yaml:"enable"`
	Filename   string `yaml:"filename,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Package internet animates packets along fixed flows over a named network
// diagram and switches between networks with a short transition.
//
// A Model is not safe for concurrent use.
package internet

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"packetflow/internal/domain"
	"packetflow/internal/routing"
	"packetflow/internal/sim"
)

var (
	ErrInvalidSpeed     = errors.New("speed must be a positive finite number")
	ErrInvalidConfig    = errors.New("invalid internet topology config")
	ErrSwitchInProgress = errors.New("network switch already in progress")
)

// Config holds the model constants. Frame counts assume one Step per
// display refresh.
type Config struct {
	// BaseRate is the progress per frame at speed 1. A packet keeps the rate
	// it was created with.
	BaseRate float64
	Speed    float64
	// SpawnPeriod is the number of frames between periodic spawns at speed 1
	SpawnPeriod int
	// SeedCount packets are spawned on start and on reset, staggered
	SeedCount    int
	SeedStagger  int
	ResetStagger int
	// TrailLength is the number of past positions kept per packet
	TrailLength int
	// TransitionFrames is how long a network switch takes
	TransitionFrames int
	// Network is the network shown first
	Network string
}

// DefaultConfig returns the diagram's cadence at 60 frames per second
func DefaultConfig() Config {
	return Config{
		BaseRate:         0.015,
		Speed:            1,
		SpawnPeriod:      180,
		SeedCount:        3,
		SeedStagger:      60,
		ResetStagger:     30,
		TrailLength:      15,
		TransitionFrames: 20,
		Network:          NetworkModern,
	}
}

// Validate checks the config for values the model cannot run with
func (c Config) Validate() error {
	if c.BaseRate <= 0 || math.IsNaN(c.BaseRate) || math.IsInf(c.BaseRate, 0) {
		return fmt.Errorf("%w: base rate %v", ErrInvalidConfig, c.BaseRate)
	}
	if err := validateSpeed(c.Speed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.SpawnPeriod < 1 || c.TransitionFrames < 1 {
		return fmt.Errorf("%w: spawn period and transition must be at least one frame", ErrInvalidConfig)
	}
	if c.SeedCount < 0 || c.SeedStagger < 0 || c.ResetStagger < 0 || c.TrailLength < 0 {
		return fmt.Errorf("%w: negative seed or trail settings", ErrInvalidConfig)
	}
	return nil
}

func validateSpeed(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, v)
	}
	return nil
}

// Packet is one flow in flight. Source and Target are adjacent; Hop is the
// index of Target in Pattern.
type Packet struct {
	ID       int               `json:"id"`
	Source   string            `json:"source"`
	Target   string            `json:"target"`
	Protocol Protocol          `json:"protocol"`
	Progress float64           `json:"progress"`
	Rate     float64           `json:"rate"`
	Position domain.Position   `json:"position"`
	Color    domain.Color      `json:"color"`
	Trail    []domain.Position `json:"trail"`
	Pattern  []string          `json:"pattern"`
	Hop      int               `json:"hop"`
}

// Destination is the last node of the packet's flow
func (p *Packet) Destination() string {
	return p.Pattern[len(p.Pattern)-1]
}

// Clone returns a deep copy safe to hand to readers
func (p *Packet) Clone() Packet {
	c := *p
	c.Trail = append([]domain.Position(nil), p.Trail...)
	c.Pattern = append([]string(nil), p.Pattern...)
	return c
}

type flow struct {
	Packet
	router routing.PatternRouter
}

// Counters tally packets since the last reset or switch
type Counters struct {
	Spawned   int `json:"spawned"`
	Completed int `json:"completed"`
	Hops      int `json:"hops"`
}

// Option configures a Model
type Option func(*Model)

// WithSeed seeds the random source deterministically
func WithSeed(seed uint64) Option {
	return func(m *Model) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithNetworks replaces the built-in catalog. Networks are validated by New.
func WithNetworks(networks ...*Network) Option {
	return func(m *Model) {
		m.networks = networks
	}
}

// Model owns the packets of one network and the switch between networks
type Model struct {
	cfg      Config
	rng      *rand.Rand
	networks []*Network

	current  int
	next     int // pending network while switching
	switchIn int // frames left in the transition, 0 when idle

	packets  []*flow
	running  bool
	speed    float64
	nextID   int
	frame    int64
	seeds    []int64
	counters Counters
}

// New creates a running model showing cfg.Network with the startup seeds
// queued
func New(cfg Config, opts ...Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		cfg:     cfg,
		running: true,
		speed:   cfg.Speed,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if len(m.networks) == 0 {
		m.networks = Catalog()
	}
	for _, n := range m.networks {
		if err := n.Validate(); err != nil {
			return nil, err
		}
	}

	i, err := m.lookup(cfg.Network)
	if err != nil {
		return nil, err
	}
	m.current = i
	m.next = i
	m.scheduleSeeds(cfg.SeedStagger)
	return m, nil
}

func (m *Model) lookup(name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	for i, n := range m.networks {
		if n.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
}

func (m *Model) scheduleSeeds(stagger int) {
	m.seeds = m.seeds[:0]
	for i := 1; i <= m.cfg.SeedCount; i++ {
		m.seeds = append(m.seeds, m.frame+int64(i*stagger))
	}
}

// Network returns the network being drawn
func (m *Model) Network() *Network {
	return m.networks[m.current]
}

// Spawn starts a packet on a random flow of the current network
func (m *Model) Spawn() Packet {
	n := m.Network()
	pattern := n.Patterns[m.rng.IntN(len(n.Patterns))]
	return m.spawn(pattern)
}

func (m *Model) spawn(pattern []string) Packet {
	n := m.Network()
	src, _ := n.Node(pattern[0])
	link, _ := n.Link(pattern[0], pattern[1])

	f := &flow{
		Packet: Packet{
			ID:       m.nextID,
			Source:   pattern[0],
			Target:   pattern[1],
			Protocol: link.Protocol,
			Rate:     m.cfg.BaseRate * m.speed,
			Position: src.Position,
			Color:    link.Protocol.Color(),
			Pattern:  append([]string(nil), pattern...),
			Hop:      1,
		},
		router: routing.NewPatternRouter(pattern),
	}
	m.nextID++
	m.counters.Spawned++
	m.packets = append(m.packets, f)
	return f.Clone()
}

// Step runs one frame. A pending switch counts down even while paused, and
// due seeds fire while paused too, though seeds wait out a switch so they
// land on the new network. Packets move and periodic spawns happen only
// while running and not switching.
func (m *Model) Step() {
	m.frame++

	if m.switchIn > 0 {
		m.switchIn--
		if m.switchIn == 0 {
			m.install()
		}
	}

	if m.switchIn == 0 {
		m.fireSeeds()
	}

	if !m.running {
		return
	}

	m.tick()

	if m.switchIn == 0 && m.frame%int64(m.SpawnPeriod()) == 0 {
		m.Spawn()
	}
}

func (m *Model) fireSeeds() {
	due := 0
	for _, at := range m.seeds {
		if at > m.frame {
			break
		}
		due++
	}
	if due == 0 {
		return
	}
	m.seeds = m.seeds[due:]
	for i := 0; i < due; i++ {
		m.Spawn()
	}
}

func (m *Model) tick() {
	live := m.packets[:0]
	for _, f := range m.packets {
		if m.advance(f) {
			live = append(live, f)
		}
	}
	for i := len(live); i < len(m.packets); i++ {
		m.packets[i] = nil
	}
	m.packets = live
}

// advance moves f and reports whether it is still in flight
func (m *Model) advance(f *flow) bool {
	n := m.Network()

	if m.cfg.TrailLength > 0 {
		f.Trail = append(f.Trail, f.Position)
		if len(f.Trail) > m.cfg.TrailLength {
			f.Trail = f.Trail[len(f.Trail)-m.cfg.TrailLength:]
		}
	}

	f.Progress += f.Rate
	if f.Progress < 1 {
		src, _ := n.Node(f.Source)
		tgt, _ := n.Node(f.Target)
		f.Position = src.Position.Lerp(tgt.Position, f.Progress)
		return true
	}

	m.counters.Hops++
	reached := f.Target
	if reached == f.Destination() {
		m.counters.Completed++
		return false
	}

	next := f.router.NextHop(reached, f.Destination())
	link, ok := n.Link(reached, next)
	if next == "" || !ok {
		return false
	}

	node, _ := n.Node(reached)
	f.Source = reached
	f.Target = next
	f.Hop++
	f.Position = node.Position
	f.Progress = 0
	f.Protocol = link.Protocol
	f.Color = link.Protocol.Color()
	f.Trail = f.Trail[:0]
	return true
}

// Switch starts the transition to the named network; an empty name picks
// the next network in the catalog. Live packets are dropped at once and the
// new network is installed when the transition ends. Switching to the
// network already shown does nothing.
func (m *Model) Switch(name string) error {
	if m.switchIn > 0 {
		return fmt.Errorf("%w: to %s", ErrSwitchInProgress, m.networks[m.next].Name)
	}

	target := (m.current + 1) % len(m.networks)
	if name != "" {
		i, err := m.lookup(name)
		if err != nil {
			return err
		}
		target = i
	}
	if target == m.current {
		return nil
	}

	m.next = target
	m.switchIn = m.cfg.TransitionFrames
	m.clearPackets()
	return nil
}

func (m *Model) install() {
	m.current = m.next
	m.clearPackets()
	m.nextID = 0
	m.counters = Counters{}
}

func (m *Model) clearPackets() {
	for i := range m.packets {
		m.packets[i] = nil
	}
	m.packets = m.packets[:0]
}

// Switching reports whether a transition is running
func (m *Model) Switching() bool {
	return m.switchIn > 0
}

// Reset clears every packet, resumes, restarts packet ids and queues the
// reset seeds. The network, a running transition and the speed are kept.
func (m *Model) Reset() {
	m.clearPackets()
	m.nextID = 0
	m.counters = Counters{}
	m.running = true
	m.scheduleSeeds(m.cfg.ResetStagger)
}

// TogglePause flips the running flag and returns the new value
func (m *Model) TogglePause() bool {
	m.running = !m.running
	return m.running
}

// Running reports whether Step moves packets
func (m *Model) Running() bool {
	return m.running
}

// SetSpeed replaces the speed multiplier. Packets in flight keep their rate.
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

// SpawnPeriod returns the frames between periodic spawns at the current speed
func (m *Model) SpawnPeriod() int {
	return sim.ScalePeriod(m.cfg.SpawnPeriod, m.speed)
}

// Frame returns the number of frames stepped
func (m *Model) Frame() int64 {
	return m.frame
}

// Len returns the number of live packets
func (m *Model) Len() int {
	return len(m.packets)
}

// Packets returns copies of the live packets
func (m *Model) Packets() []Packet {
	out := make([]Packet, len(m.packets))
	for i, f := range m.packets {
		out[i] = f.Clone()
	}
	return out
}

// Counters returns the tallies since the last reset or switch
func (m *Model) Counters() Counters {
	return m.counters
}

// Snapshot is everything a renderer needs to draw one frame
type Snapshot struct {
	Frame        int64        `json:"frame"`
	Running      bool         `json:"running"`
	Speed        float64      `json:"speed"`
	SpawnPeriod  int          `json:"spawn_period"`
	LivePackets  int          `json:"live_packets"`
	PendingSeeds int          `json:"pending_seeds"`
	Network      *NetworkView `json:"network"`
	Networks     []string     `json:"networks"`
	// SwitchingTo names the pending network and Transition runs 0 to 1
	// while a switch is in progress
	SwitchingTo string   `json:"switching_to,omitempty"`
	Transition  float64  `json:"transition"`
	Counters    Counters `json:"counters"`
	Packets     []Packet `json:"packets"`
}

// Snapshot copies the current state. The Network view is shared and must be
// treated as read-only.
func (m *Model) Snapshot() Snapshot {
	names := make([]string, len(m.networks))
	for i, n := range m.networks {
		names[i] = n.Name
	}
	snap := Snapshot{
		Frame:        m.frame,
		Running:      m.running,
		Speed:        m.speed,
		SpawnPeriod:  m.SpawnPeriod(),
		LivePackets:  len(m.packets),
		PendingSeeds: len(m.seeds),
		Network:      m.Network().View(),
		Networks:     names,
		Counters:     m.counters,
		Packets:      m.Packets(),
	}
	if m.switchIn > 0 {
		snap.SwitchingTo = m.networks[m.next].Name
		snap.Transition = 1 - float64(m.switchIn)/float64(m.cfg.TransitionFrames)
	}
	return snap
}

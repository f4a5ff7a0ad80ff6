// Package sim moves packets across a topology one frame at a time.
//
// A Simulation is not safe for concurrent use. Hosts that render from
// another goroutine must serialize Step and Snapshot themselves.
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"packetflow/internal/domain"
	"packetflow/internal/routing"
)

var (
	ErrNotSpoke      = errors.New("node is not a non-hub node")
	ErrSameEndpoints = errors.New("source and destination must differ")
)

// Option configures a Simulation
type Option func(*Simulation)

// WithRand sets the random source used to pick sources and destinations
func WithRand(r *rand.Rand) Option {
	return func(s *Simulation) {
		s.rng = r
	}
}

// WithSeed seeds the random source deterministically
func WithSeed(seed uint64) Option {
	return func(s *Simulation) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithListener registers the lifecycle event listener
func WithListener(l Listener) Option {
	return func(s *Simulation) {
		s.listener = l
	}
}

// Simulation owns the live packets and the controls that act on them
type Simulation struct {
	cfg      Config
	rng      *rand.Rand
	listener Listener

	topo   *domain.Topology
	graph  *domain.Graph
	router routing.Router
	spokes []domain.Node
	colors map[string]domain.Color

	packets    []*domain.Packet
	running    bool
	speed      float64
	maxPackets int
	nextID     int
	frame      int64
	seeds      []int64
}

// New creates a running simulation over topo and schedules the startup seeds
func New(topo *domain.Topology, cfg Config, opts ...Option) (*Simulation, error) {
	if topo == nil {
		return nil, fmt.Errorf("%w: nil topology", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:        cfg,
		running:    true,
		speed:      cfg.Speed,
		maxPackets: cfg.MaxPackets,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s.setTopology(topo)
	s.scheduleSeeds(cfg.SeedStagger)
	return s, nil
}

func (s *Simulation) setTopology(topo *domain.Topology) {
	s.topo = topo
	s.graph = domain.DeriveGraph(topo)
	s.router = routing.NewHubRouter(topo.Hub())
	s.spokes = topo.Spokes()
	s.colors = make(map[string]domain.Color, len(s.spokes))
	for i, n := range s.spokes {
		s.colors[n.ID] = domain.PaletteColor(i)
	}
}

// scheduleSeeds queues SeedCount spawns, the first due on the next Step
func (s *Simulation) scheduleSeeds(stagger int) {
	s.seeds = s.seeds[:0]
	for i := 0; i < s.cfg.SeedCount; i++ {
		s.seeds = append(s.seeds, s.frame+int64(i*stagger))
	}
}

// Spawn creates a packet between two distinct random non-hub nodes
func (s *Simulation) Spawn() domain.Packet {
	src := s.spokes[s.rng.IntN(len(s.spokes))]
	dst := src
	for dst.ID == src.ID {
		dst = s.spokes[s.rng.IntN(len(s.spokes))]
	}
	return s.spawn(src, dst)
}

// SpawnBetween creates a packet with a fixed source and destination. Both
// must be distinct non-hub nodes.
func (s *Simulation) SpawnBetween(source, destination string) (domain.Packet, error) {
	if source == destination {
		return domain.Packet{}, fmt.Errorf("%w: %s", ErrSameEndpoints, source)
	}
	src, ok := s.spoke(source)
	if !ok {
		return domain.Packet{}, fmt.Errorf("%w: %q", ErrNotSpoke, source)
	}
	dst, ok := s.spoke(destination)
	if !ok {
		return domain.Packet{}, fmt.Errorf("%w: %q", ErrNotSpoke, destination)
	}
	return s.spawn(src, dst), nil
}

func (s *Simulation) spoke(id string) (domain.Node, bool) {
	for _, n := range s.spokes {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Node{}, false
}

func (s *Simulation) spawn(src, dst domain.Node) domain.Packet {
	p := &domain.Packet{
		ID:           s.nextID,
		Source:       src.ID,
		Destination:  dst.ID,
		Current:      src.ID,
		Target:       s.router.NextHop(src.ID, dst.ID),
		Position:     src.Position,
		Color:        s.colors[src.ID],
		Path:         []string{src.ID},
		SpawnedFrame: s.frame,
	}
	s.nextID++
	s.packets = append(s.packets, p)
	s.emit(EventSpawned, p)
	return p.Clone()
}

// Tick advances every live packet by one step, hopping and removing packets
// as they reach their target. Tick ignores the paused flag; Step honors it.
func (s *Simulation) Tick() {
	live := s.packets[:0]
	for _, p := range s.packets {
		if s.advance(p) {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(s.packets); i++ {
		s.packets[i] = nil
	}
	s.packets = live
}

// advance moves p and reports whether it is still in flight
func (s *Simulation) advance(p *domain.Packet) bool {
	p.Progress += s.cfg.BaseRate * s.speed

	if p.Progress < 1 {
		cur, _ := s.topo.Node(p.Current)
		tgt, _ := s.topo.Node(p.Target)
		p.Position = cur.Position.Lerp(tgt.Position, p.Progress)
		return true
	}

	// Overshoot is dropped, not carried into the next edge.
	p.Current = p.Target
	p.Progress = 0
	p.Path = append(p.Path, p.Current)
	node, _ := s.topo.Node(p.Current)
	p.Position = node.Position

	if p.Arrived() {
		s.emit(EventDelivered, p)
		return false
	}

	p.Target = s.router.NextHop(p.Current, p.Destination)
	s.emit(EventHopped, p)
	return true
}

// Step runs one host frame: due seed spawns fire (even while paused, and
// regardless of the cap), then, if running, packets tick and a periodic
// spawn happens when the frame falls on the spawn period and the live count
// is below the cap.
func (s *Simulation) Step() {
	s.frame++
	s.fireSeeds()

	if !s.running {
		return
	}

	s.Tick()

	if s.frame%int64(s.SpawnPeriod()) == 0 && len(s.packets) < s.maxPackets {
		s.Spawn()
	}
}

func (s *Simulation) fireSeeds() {
	due := 0
	for _, at := range s.seeds {
		if at > s.frame {
			break
		}
		due++
	}
	if due == 0 {
		return
	}
	s.seeds = s.seeds[due:]
	for i := 0; i < due; i++ {
		s.Spawn()
	}
}

// SpawnPeriod returns the frames between periodic spawns at the current speed
func (s *Simulation) SpawnPeriod() int {
	return ScalePeriod(s.cfg.SpawnPeriod, s.speed)
}

// MaxPeriod caps ScalePeriod. At 60 frames per second it is over a year.
const MaxPeriod = math.MaxInt32

// ScalePeriod divides a frame period by speed, rounding to whole frames
// within [1, MaxPeriod]. The bound is applied before the conversion so tiny
// speeds cannot overflow int.
func ScalePeriod(base int, speed float64) int {
	f := math.Round(float64(base) / speed)
	if f >= MaxPeriod {
		return MaxPeriod
	}
	if f < 1 {
		return 1
	}
	return int(f)
}

// Reset clears every packet, resumes, restarts packet ids and reschedules
// the staggered seeds. Speed and cap are kept.
func (s *Simulation) Reset() {
	for i := range s.packets {
		s.packets[i] = nil
	}
	s.packets = s.packets[:0]
	s.nextID = 0
	s.running = true
	s.scheduleSeeds(s.cfg.ResetStagger)
}

// SetTopology swaps the topology and resets
func (s *Simulation) SetTopology(topo *domain.Topology) error {
	if topo == nil {
		return fmt.Errorf("%w: nil topology", ErrInvalidConfig)
	}
	s.setTopology(topo)
	s.Reset()
	return nil
}

// TogglePause flips the running flag and returns the new value
func (s *Simulation) TogglePause() bool {
	s.running = !s.running
	return s.running
}

// Pause stops ticking and periodic spawning
func (s *Simulation) Pause() {
	s.running = false
}

// Resume undoes Pause
func (s *Simulation) Resume() {
	s.running = true
}

// Running reports whether Step ticks packets
func (s *Simulation) Running() bool {
	return s.running
}

// SetSpeed replaces the speed multiplier
func (s *Simulation) SetSpeed(v float64) error {
	if err := validateSpeed(v); err != nil {
		return err
	}
	s.speed = v
	return nil
}

// Speed returns the speed multiplier
func (s *Simulation) Speed() float64 {
	return s.speed
}

// SetMaxPackets replaces the periodic spawn cap
func (s *Simulation) SetMaxPackets(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxPackets, n)
	}
	s.maxPackets = n
	return nil
}

// MaxPackets returns the periodic spawn cap
func (s *Simulation) MaxPackets() int {
	return s.maxPackets
}

// Len returns the number of live packets
func (s *Simulation) Len() int {
	return len(s.packets)
}

// Frame returns the number of Steps taken
func (s *Simulation) Frame() int64 {
	return s.frame
}

// PendingSeeds returns how many staggered seed spawns have not fired yet
func (s *Simulation) PendingSeeds() int {
	return len(s.seeds)
}

// Topology returns the active topology
func (s *Simulation) Topology() *domain.Topology {
	return s.topo
}

// Packets returns copies of the live packets in draw order
func (s *Simulation) Packets() []domain.Packet {
	out := make([]domain.Packet, len(s.packets))
	for i, p := range s.packets {
		out[i] = p.Clone()
	}
	return out
}

func (s *Simulation) emit(kind EventKind, p *domain.Packet) {
	if s.listener == nil {
		return
	}
	s.listener(Event{Kind: kind, Frame: s.frame, Packet: p.Clone()})
}

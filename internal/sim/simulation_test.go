package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packetflow/internal/domain"
)

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.SeedCount = 0
	return cfg
}

func newTestSim(t *testing.T, cfg Config, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithSeed(42)}, opts...)
	s, err := New(domain.DefaultTopology(), cfg, opts...)
	require.NoError(t, err)
	return s
}

type eventLog struct {
	events []Event
}

func (l *eventLog) listen(e Event) {
	l.events = append(l.events, e)
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speed = 0
	_, err := New(domain.DefaultTopology(), cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, ErrInvalidSpeed)

	_, err = New(nil, DefaultConfig())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSpawnPicksDistinctSpokes(t *testing.T) {
	s := newTestSim(t, quietConfig())
	topo := s.Topology()

	for i := 0; i < 1000; i++ {
		p := s.Spawn()

		require.NotEqual(t, p.Source, p.Destination)
		require.NotEqual(t, topo.Hub(), p.Source)
		require.NotEqual(t, topo.Hub(), p.Destination)
		require.Equal(t, i, p.ID)
		require.Equal(t, []string{p.Source}, p.Path)
		require.Equal(t, p.Source, p.Current)
		require.Equal(t, topo.Hub(), p.Target)
		require.Zero(t, p.Progress)

		node, ok := topo.Node(p.Source)
		require.True(t, ok)
		require.Equal(t, node.Position, p.Position)
	}
	assert.Equal(t, 1000, s.Len())
}

func TestSpawnColorsBySource(t *testing.T) {
	s := newTestSim(t, quietConfig())

	want := map[string]domain.Color{
		"A": domain.SourcePalette[0],
		"B": domain.SourcePalette[1],
		"C": domain.SourcePalette[2],
		"D": domain.SourcePalette[3],
	}
	for i := 0; i < 100; i++ {
		p := s.Spawn()
		assert.Equal(t, want[p.Source], p.Color, "source %s", p.Source)
	}
}

func TestSpawnBetween(t *testing.T) {
	s := newTestSim(t, quietConfig())

	_, err := s.SpawnBetween("A", "A")
	require.ErrorIs(t, err, ErrSameEndpoints)

	_, err = s.SpawnBetween("E", "A")
	require.ErrorIs(t, err, ErrNotSpoke)

	_, err = s.SpawnBetween("A", "Z")
	require.ErrorIs(t, err, ErrNotSpoke)

	p, err := s.SpawnBetween("A", "C")
	require.NoError(t, err)
	assert.Equal(t, "E", p.Target)
	assert.Equal(t, 1, s.Len())
}

func TestPacketRoutesThroughHub(t *testing.T) {
	log := &eventLog{}
	s := newTestSim(t, quietConfig(), WithListener(log.listen))

	_, err := s.SpawnBetween("A", "C")
	require.NoError(t, err)

	for i := 0; i < 200 && s.Len() > 0; i++ {
		s.Tick()
	}
	require.Zero(t, s.Len(), "packet should have been delivered")

	require.Len(t, log.events, 3)
	assert.Equal(t, EventSpawned, log.events[0].Kind)
	assert.Equal(t, EventHopped, log.events[1].Kind)
	assert.Equal(t, "E", log.events[1].Packet.Current)
	assert.Equal(t, "C", log.events[1].Packet.Target)

	delivered := log.events[2]
	assert.Equal(t, EventDelivered, delivered.Kind)
	assert.Equal(t, []string{"A", "E", "C"}, delivered.Packet.Path)
	assert.Equal(t, "C", delivered.Packet.Current)

	c, _ := s.Topology().Node("C")
	assert.Equal(t, c.Position, delivered.Packet.Position)
}

func TestShortcutIsNeverTaken(t *testing.T) {
	log := &eventLog{}
	s := newTestSim(t, quietConfig(), WithListener(log.listen))

	_, err := s.SpawnBetween("A", "B")
	require.NoError(t, err)
	for i := 0; i < 200 && s.Len() > 0; i++ {
		s.Tick()
	}

	last := log.events[len(log.events)-1]
	require.Equal(t, EventDelivered, last.Kind)
	assert.Equal(t, []string{"A", "E", "B"}, last.Packet.Path)
}

func TestTickInterpolatesPosition(t *testing.T) {
	s := newTestSim(t, quietConfig())
	_, err := s.SpawnBetween("A", "C")
	require.NoError(t, err)

	s.Tick()

	p := s.Packets()[0]
	a, _ := s.Topology().Node("A")
	e, _ := s.Topology().Node("E")
	want := a.Position.Lerp(e.Position, 0.02)

	assert.InDelta(t, 0.02, p.Progress, 1e-9)
	assert.InDelta(t, want.X, p.Position.X, 1e-9)
	assert.InDelta(t, want.Y, p.Position.Y, 1e-9)
}

func TestTickScalesWithSpeed(t *testing.T) {
	s := newTestSim(t, quietConfig())
	require.NoError(t, s.SetSpeed(2.5))
	_, err := s.SpawnBetween("B", "D")
	require.NoError(t, err)

	s.Tick()
	assert.InDelta(t, 0.05, s.Packets()[0].Progress, 1e-9)
}

func TestTickOnEmptyIsNoop(t *testing.T) {
	s := newTestSim(t, quietConfig())
	s.Tick()
	assert.Zero(t, s.Len())
}

func TestEveryPacketIsDeliveredWithinTwoHops(t *testing.T) {
	topo := domain.DefaultTopology()
	// 1/0.02 ticks per edge plus one for float accumulation, two edges.
	limit := 2 * (int(math.Ceil(1/DefaultConfig().BaseRate)) + 1)

	for _, src := range topo.Spokes() {
		for _, dst := range topo.Spokes() {
			if src.ID == dst.ID {
				continue
			}
			log := &eventLog{}
			s := newTestSim(t, quietConfig(), WithListener(log.listen))
			_, err := s.SpawnBetween(src.ID, dst.ID)
			require.NoError(t, err)

			ticks := 0
			for s.Len() > 0 {
				require.Less(t, ticks, limit, "%s -> %s did not arrive", src.ID, dst.ID)
				s.Tick()
				ticks++
			}
			require.Equal(t, 1, log.count(EventDelivered))
			assert.Len(t, log.events[len(log.events)-1].Packet.Path, 3)
		}
	}
}

func TestInvariantsHoldWhileRunning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPackets = 25
	s := newTestSim(t, cfg)
	require.NoError(t, s.SetSpeed(3))
	topo := s.Topology()

	for frame := 0; frame < 5000; frame++ {
		s.Step()
		for _, p := range s.Packets() {
			require.NotEqual(t, p.Source, p.Destination)
			require.True(t, topo.HasEdge(p.Current, p.Target),
				"packet %d at %s targets non-adjacent %s", p.ID, p.Current, p.Target)
			require.GreaterOrEqual(t, p.Progress, 0.0)
			require.Less(t, p.Progress, 1.0)
			require.LessOrEqual(t, len(p.Path), 2)
		}
	}
}

func TestStartupSeedsAreStaggered(t *testing.T) {
	log := &eventLog{}
	cfg := DefaultConfig()
	cfg.SpawnPeriod = 10000
	s := newTestSim(t, cfg, WithListener(log.listen))

	assert.Equal(t, 3, s.PendingSeeds())

	s.Step()
	assert.Equal(t, 1, log.count(EventSpawned))

	for s.Frame() < 59 {
		s.Step()
	}
	assert.Equal(t, 1, log.count(EventSpawned))

	s.Step()
	assert.Equal(t, 2, log.count(EventSpawned))

	for s.Frame() < 120 {
		s.Step()
	}
	assert.Equal(t, 3, log.count(EventSpawned))
	assert.Zero(t, s.PendingSeeds())
}

func TestSeedsFireWhilePaused(t *testing.T) {
	s := newTestSim(t, DefaultConfig())
	s.Pause()

	for i := 0; i < 200; i++ {
		s.Step()
	}

	require.Equal(t, 3, s.Len())
	for _, p := range s.Packets() {
		assert.Zero(t, p.Progress, "paused packets must not move")
	}
}

func TestPeriodicSpawn(t *testing.T) {
	log := &eventLog{}
	s := newTestSim(t, quietConfig(), WithListener(log.listen))

	for s.Frame() < 119 {
		s.Step()
	}
	assert.Zero(t, log.count(EventSpawned))

	s.Step()
	assert.Equal(t, 1, log.count(EventSpawned))

	for s.Frame() < 240 {
		s.Step()
	}
	assert.Equal(t, 2, log.count(EventSpawned))
}

func TestMaxPacketsZeroBlocksPeriodicSpawn(t *testing.T) {
	s := newTestSim(t, quietConfig())
	require.NoError(t, s.SetMaxPackets(0))

	for i := 0; i < 1200; i++ {
		s.Step()
	}
	assert.Zero(t, s.Len())
}

func TestMaxPacketsCapsPeriodicSpawn(t *testing.T) {
	cfg := quietConfig()
	cfg.SpawnPeriod = 1
	s := newTestSim(t, cfg)
	require.NoError(t, s.SetMaxPackets(4))

	for i := 0; i < 500; i++ {
		s.Step()
		require.LessOrEqual(t, s.Len(), 4)
	}
}

func TestSpawnPeriodFollowsSpeed(t *testing.T) {
	s := newTestSim(t, quietConfig())

	tests := []struct {
		speed float64
		want  int
	}{
		{1, 120},
		{2, 60},
		{0.5, 240},
		{7, 17},
		{1000, 1},
		{1e-9, MaxPeriod},
		{1e-17, MaxPeriod},
		{1e-300, MaxPeriod},
	}

	for _, tt := range tests {
		require.NoError(t, s.SetSpeed(tt.speed))
		assert.Equal(t, tt.want, s.SpawnPeriod(), "speed %v", tt.speed)
	}
}

func TestTinySpeedDoesNotSpawnEveryFrame(t *testing.T) {
	s := newTestSim(t, quietConfig())
	require.NoError(t, s.SetSpeed(1e-300))

	for i := 0; i < 5; i++ {
		s.Step()
	}
	assert.Zero(t, s.Len(), "a near-frozen simulation must not spawn")
}

func TestPauseToggle(t *testing.T) {
	s := newTestSim(t, quietConfig())
	_, err := s.SpawnBetween("A", "D")
	require.NoError(t, err)

	require.True(t, s.Running())
	assert.False(t, s.TogglePause())

	frame := s.Frame()
	s.Step()
	assert.Equal(t, frame+1, s.Frame(), "frames advance while paused")
	assert.Zero(t, s.Packets()[0].Progress)

	assert.True(t, s.TogglePause())
	s.Step()
	assert.InDelta(t, 0.02, s.Packets()[0].Progress, 1e-9)
}

func TestSetSpeedValidation(t *testing.T) {
	s := newTestSim(t, quietConfig())

	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		require.ErrorIs(t, s.SetSpeed(v), ErrInvalidSpeed, "speed %v", v)
	}
	assert.Equal(t, 1.0, s.Speed())

	require.NoError(t, s.SetSpeed(0.25))
	assert.Equal(t, 0.25, s.Speed())
}

func TestSetMaxPacketsValidation(t *testing.T) {
	s := newTestSim(t, quietConfig())

	require.ErrorIs(t, s.SetMaxPackets(-1), ErrInvalidMaxPackets)
	assert.Equal(t, 10, s.MaxPackets())

	require.NoError(t, s.SetMaxPackets(0))
	assert.Zero(t, s.MaxPackets())
}

func TestResetWithPacketsInFlight(t *testing.T) {
	log := &eventLog{}
	s := newTestSim(t, quietConfig(), WithListener(log.listen))
	// quietConfig disables seeds at start; reset should still use the default count.
	s.cfg.SeedCount = 3

	for i := 0; i < 5; i++ {
		s.Spawn()
	}
	s.Tick()
	s.Pause()
	require.Equal(t, 5, s.Len())

	s.Reset()

	assert.Zero(t, s.Len())
	assert.True(t, s.Running())
	assert.Equal(t, 3, s.PendingSeeds())

	spawned := log.count(EventSpawned)
	start := s.Frame()
	for s.Frame() < start+61 {
		s.Step()
	}
	assert.Equal(t, spawned+3, log.count(EventSpawned))
	assert.Zero(t, s.PendingSeeds())

	ids := make([]int, 0, s.Len())
	for _, p := range s.Packets() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{0, 1, 2}, ids, "packet ids restart after reset")
}

func TestSetTopology(t *testing.T) {
	s := newTestSim(t, quietConfig())
	s.Spawn()

	nodes := []domain.Node{
		domain.NewNode("R1", domain.NodeTypeRouter, 0, 0),
		domain.NewNode("R2", domain.NodeTypeRouter, 100, 0),
		domain.NewNode("R3", domain.NodeTypeRouter, 50, 100),
		domain.NewNode("S", domain.NodeTypeSwitch, 50, 50),
	}
	edges := []domain.Edge{
		domain.NewEdge("R1", "S", 1),
		domain.NewEdge("R2", "S", 1),
		domain.NewEdge("R3", "S", 1),
	}
	topo, err := domain.NewTopology(nodes, edges, "S")
	require.NoError(t, err)

	require.NoError(t, s.SetTopology(topo))
	assert.Zero(t, s.Len())
	assert.Equal(t, "S", s.Snapshot().Graph.Hub)

	for i := 0; i < 50; i++ {
		p := s.Spawn()
		assert.Contains(t, []string{"R1", "R2", "R3"}, p.Source)
		assert.Equal(t, "S", p.Target)
	}

	require.ErrorIs(t, s.SetTopology(nil), ErrInvalidConfig)
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newTestSim(t, quietConfig())
	_, err := s.SpawnBetween("A", "C")
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Packets, 1)
	assert.Equal(t, 1, snap.LivePackets)
	assert.Equal(t, 10, snap.MaxPackets)
	assert.Equal(t, 120, snap.SpawnPeriod)
	assert.True(t, snap.Running)
	assert.Len(t, snap.Graph.Nodes, 5)

	snap.Packets[0].Path[0] = "Z"
	snap.Packets[0].Progress = 0.9
	live := s.Packets()[0]
	assert.Equal(t, "A", live.Path[0])
	assert.Zero(t, live.Progress)
}

package internet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packetflow/internal/domain"
	"packetflow/internal/sim"
)

// lineNetwork is a three-node chain walked end to end
func lineNetwork() *Network {
	return &Network{
		Name: "line",
		Nodes: []Node{
			node("a", "iot", "A", 0, 0),
			node("b", "mqtt", "B", 100, 0),
			node("c", "user", "C", 100, 100),
		},
		Links: []Link{
			{"a", "b", ProtocolMQTT},
			{"b", "c", ProtocolHTTP},
		},
		Patterns: [][]string{{"a", "b", "c"}},
	}
}

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.SeedCount = 0
	cfg.SpawnPeriod = 100000
	return cfg
}

func newTestModel(t *testing.T, cfg Config, opts ...Option) *Model {
	t.Helper()
	m, err := New(cfg, append([]Option{WithSeed(7)}, opts...)...)
	require.NoError(t, err)
	return m
}

func stepN(m *Model, n int) {
	for i := 0; i < n; i++ {
		m.Step()
	}
}

func TestNewModel(t *testing.T) {
	m := newTestModel(t, DefaultConfig())

	assert.True(t, m.Running())
	assert.Equal(t, NetworkModern, m.Network().Name)
	assert.Equal(t, 180, m.SpawnPeriod())
	assert.Zero(t, m.Len())

	snap := m.Snapshot()
	assert.Equal(t, 3, snap.PendingSeeds)
	assert.Equal(t, []string{NetworkModern, NetworkOSI}, snap.Networks)
	assert.Empty(t, snap.SwitchingTo)
	assert.Len(t, snap.Network.Nodes, 14)
	assert.Len(t, snap.Network.Links, 17)
}

func TestNewModelRejectsBadInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speed = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, ErrInvalidSpeed)

	cfg = DefaultConfig()
	cfg.TransitionFrames = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Network = "arpanet"
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrUnknownNetwork)

	broken := lineNetwork()
	broken.Patterns = [][]string{{"a", "c"}}
	_, err = New(quietConfig(), WithNetworks(broken))
	assert.ErrorIs(t, err, ErrInvalidNetwork)
}

func TestStartupSeedsFireOneSecondApart(t *testing.T) {
	m := newTestModel(t, DefaultConfig())

	stepN(m, 59)
	assert.Zero(t, m.Counters().Spawned)

	m.Step()
	assert.Equal(t, 1, m.Counters().Spawned)

	stepN(m, 60)
	assert.Equal(t, 2, m.Counters().Spawned)

	// Frame 180 fires the last seed and the first periodic spawn
	stepN(m, 60)
	assert.Equal(t, 4, m.Counters().Spawned)
	assert.Zero(t, m.Snapshot().PendingSeeds)
}

func TestSeedsFireWhilePaused(t *testing.T) {
	m := newTestModel(t, DefaultConfig())
	m.TogglePause()

	stepN(m, 180)
	assert.Equal(t, 3, m.Len())
	for _, p := range m.Packets() {
		assert.Zero(t, p.Progress, "paused packets must not move")
	}
}

func TestPeriodicSpawnFollowsSpeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeedCount = 0
	m := newTestModel(t, cfg)

	require.NoError(t, m.SetSpeed(2))
	assert.Equal(t, 90, m.SpawnPeriod())
	stepN(m, 90)
	assert.Equal(t, 1, m.Counters().Spawned)

	require.NoError(t, m.SetSpeed(1e-300))
	assert.Equal(t, sim.MaxPeriod, m.SpawnPeriod())
	stepN(m, 5)
	assert.Equal(t, 1, m.Counters().Spawned)
}

func TestPacketWalksItsPattern(t *testing.T) {
	cfg := quietConfig()
	cfg.BaseRate = 0.5
	cfg.Network = "line"
	m := newTestModel(t, cfg, WithNetworks(lineNetwork()))

	p := m.Spawn()
	assert.Equal(t, "a", p.Source)
	assert.Equal(t, "b", p.Target)
	assert.Equal(t, "c", p.Destination())
	assert.Equal(t, ProtocolMQTT, p.Protocol)
	assert.Equal(t, ProtocolMQTT.Color(), p.Color)
	assert.Equal(t, 1, p.Hop)

	m.Step()
	got := m.Packets()[0]
	assert.Equal(t, domain.NewPosition(50, 0), got.Position)
	assert.Len(t, got.Trail, 1)

	// Reaching b snaps to it and takes the next link
	m.Step()
	got = m.Packets()[0]
	assert.Equal(t, "b", got.Source)
	assert.Equal(t, "c", got.Target)
	assert.Equal(t, 2, got.Hop)
	assert.Equal(t, domain.NewPosition(100, 0), got.Position)
	assert.Zero(t, got.Progress)
	assert.Equal(t, ProtocolHTTP, got.Protocol)
	assert.Equal(t, ProtocolHTTP.Color(), got.Color)
	assert.Empty(t, got.Trail)

	m.Step()
	assert.Equal(t, domain.NewPosition(100, 50), m.Packets()[0].Position)

	m.Step()
	assert.Zero(t, m.Len())
	assert.Equal(t, Counters{Spawned: 1, Completed: 1, Hops: 2}, m.Counters())
}

func TestTrailIsCapped(t *testing.T) {
	cfg := quietConfig()
	cfg.TrailLength = 4
	m := newTestModel(t, cfg)

	m.Spawn()
	stepN(m, 10)
	require.Equal(t, 1, m.Len())
	assert.Len(t, m.Packets()[0].Trail, 4)
}

func TestPacketKeepsRateItWasCreatedWith(t *testing.T) {
	m := newTestModel(t, quietConfig())

	first := m.Spawn()
	require.NoError(t, m.SetSpeed(2))
	second := m.Spawn()

	assert.InDelta(t, 0.015, first.Rate, 1e-12)
	assert.InDelta(t, 0.03, second.Rate, 1e-12)

	m.Step()
	pkts := m.Packets()
	assert.InDelta(t, 0.015, pkts[0].Progress, 1e-12)
	assert.InDelta(t, 0.03, pkts[1].Progress, 1e-12)
}

func TestSpawnedPacketsStartOnALink(t *testing.T) {
	for _, name := range []string{NetworkModern, NetworkOSI} {
		t.Run(name, func(t *testing.T) {
			cfg := quietConfig()
			cfg.Network = name
			m := newTestModel(t, cfg)
			n := m.Network()

			for i := 0; i < 50; i++ {
				p := m.Spawn()
				assert.Equal(t, p.Pattern[0], p.Source)
				link, ok := n.Link(p.Source, p.Target)
				require.True(t, ok, "%s-%s", p.Source, p.Target)
				assert.Equal(t, link.Protocol, p.Protocol)
			}
		})
	}
}

func TestSwitchNetwork(t *testing.T) {
	m := newTestModel(t, quietConfig())
	m.Spawn()
	m.Spawn()

	require.NoError(t, m.Switch(""))
	assert.True(t, m.Switching())
	assert.Zero(t, m.Len(), "switching drops live packets at once")
	assert.Equal(t, NetworkModern, m.Network().Name, "old network stays drawn until the transition ends")

	snap := m.Snapshot()
	assert.Equal(t, NetworkOSI, snap.SwitchingTo)
	assert.Zero(t, snap.Transition)

	assert.ErrorIs(t, m.Switch(NetworkModern), ErrSwitchInProgress)

	stepN(m, 10)
	assert.InDelta(t, 0.5, m.Snapshot().Transition, 1e-12)

	stepN(m, 10)
	assert.False(t, m.Switching())
	assert.Equal(t, NetworkOSI, m.Network().Name)
	assert.Equal(t, Counters{}, m.Counters())

	p := m.Spawn()
	assert.Zero(t, p.ID, "ids restart on the new network")
	_, ok := m.Network().Node(p.Source)
	assert.True(t, ok)
}

func TestSwitchByName(t *testing.T) {
	m := newTestModel(t, quietConfig())

	assert.ErrorIs(t, m.Switch("arpanet"), ErrUnknownNetwork)
	assert.False(t, m.Switching())

	require.NoError(t, m.Switch(NetworkModern))
	assert.False(t, m.Switching(), "switching to the shown network is a no-op")

	require.NoError(t, m.Switch(NetworkOSI))
	assert.True(t, m.Switching())
}

func TestSwitchAdvancesWhilePausedWithoutSpawning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeedCount = 0
	cfg.SpawnPeriod = 5
	m := newTestModel(t, cfg)

	require.NoError(t, m.Switch(NetworkOSI))
	stepN(m, 15)
	assert.Zero(t, m.Counters().Spawned, "no spawns during a switch")

	m.TogglePause()
	stepN(m, 5)
	assert.False(t, m.Switching())
	assert.Equal(t, NetworkOSI, m.Network().Name)
}

func TestSeedsWaitOutASwitch(t *testing.T) {
	m := newTestModel(t, DefaultConfig())

	stepN(m, 50)
	require.NoError(t, m.Switch(NetworkOSI))
	stepN(m, 15)
	assert.Zero(t, m.Len())
	assert.Equal(t, 3, m.Snapshot().PendingSeeds)

	stepN(m, 5)
	assert.Equal(t, 1, m.Len(), "the overdue seed lands on the new network")
	_, ok := m.Network().Node(m.Packets()[0].Source)
	assert.True(t, ok)
}

func TestResetKeepsNetworkAndReseeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpawnPeriod = 100000
	cfg.Network = NetworkOSI
	m := newTestModel(t, cfg)

	stepN(m, 120)
	require.Equal(t, 2, m.Len())
	m.TogglePause()
	require.NoError(t, m.SetSpeed(3))

	m.Reset()
	assert.True(t, m.Running())
	assert.Zero(t, m.Len())
	assert.Equal(t, 3.0, m.Speed())
	assert.Equal(t, NetworkOSI, m.Network().Name)

	stepN(m, 30)
	require.Equal(t, 1, m.Len())
	assert.Zero(t, m.Packets()[0].ID)

	stepN(m, 60)
	assert.Equal(t, 3, m.Counters().Spawned)
}

func TestSetSpeedRejectsInvalid(t *testing.T) {
	m := newTestModel(t, quietConfig())
	assert.ErrorIs(t, m.SetSpeed(-1), ErrInvalidSpeed)
	assert.Equal(t, 1.0, m.Speed())
}

func TestSnapshotIsDetached(t *testing.T) {
	m := newTestModel(t, quietConfig())
	m.Spawn()
	m.Step()

	snap := m.Snapshot()
	snap.Packets[0].Pattern[0] = "changed"
	snap.Packets[0].Trail[0] = domain.NewPosition(-1, -1)

	again := m.Packets()[0]
	assert.NotEqual(t, "changed", again.Pattern[0])
	assert.NotEqual(t, domain.NewPosition(-1, -1), again.Trail[0])
}

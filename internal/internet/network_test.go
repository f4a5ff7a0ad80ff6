package internet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packetflow/internal/domain"
	"packetflow/internal/routing"
)

func TestCatalogNetworksAreValid(t *testing.T) {
	for _, n := range Catalog() {
		t.Run(n.Name, func(t *testing.T) {
			require.NoError(t, n.Validate())

			for _, pattern := range n.Patterns {
				path, err := routing.Route(routing.NewPatternRouter(pattern), pattern[0], pattern[len(pattern)-1])
				require.NoError(t, err)
				assert.Equal(t, pattern, path)
			}
		})
	}
}

func TestNetworkValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(n *Network)
	}{
		{"missing name", func(n *Network) { n.Name = "" }},
		{"node without id", func(n *Network) { n.Nodes[0].ID = "" }},
		{"duplicate node", func(n *Network) { n.Nodes[1].ID = "a" }},
		{"link from unknown node", func(n *Network) { n.Links[0].From = "x" }},
		{"link to unknown node", func(n *Network) { n.Links[0].To = "x" }},
		{"self link", func(n *Network) { n.Links[0].To = "a" }},
		{"no patterns", func(n *Network) { n.Patterns = nil }},
		{"single node pattern", func(n *Network) { n.Patterns = [][]string{{"a"}} }},
		{"pattern skips a link", func(n *Network) { n.Patterns = [][]string{{"a", "c"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := lineNetwork()
			tt.mutate(n)
			assert.ErrorIs(t, n.Validate(), ErrInvalidNetwork)
		})
	}
}

func TestLinksAreUndirected(t *testing.T) {
	n := ModernNetwork()
	require.NoError(t, n.Validate())

	fwd, ok := n.Link("iot1", "mqtt")
	require.True(t, ok)
	rev, ok := n.Link("mqtt", "iot1")
	require.True(t, ok)
	assert.Equal(t, fwd, rev)

	_, ok = n.Link("iot1", "user1")
	assert.False(t, ok)
}

func TestProtocolColor(t *testing.T) {
	tests := []struct {
		protocol Protocol
		want     domain.Color
	}{
		{ProtocolMQTT, domain.Color{R: 100, G: 255, B: 100}},
		{ProtocolHTTP, domain.Color{R: 100, G: 150, B: 255}},
		{ProtocolOSIL5, domain.Color{R: 255, G: 200, B: 100}},
		{ProtocolOSIL6, domain.Color{R: 255, G: 150, B: 200}},
		{ProtocolOSIL7, domain.Color{R: 200, G: 100, B: 255}},
		{Protocol("QUIC"), DefaultProtocolColor},
	}

	for _, tt := range tests {
		t.Run(string(tt.protocol), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.protocol.Color())
		})
	}
}

func TestNetworkView(t *testing.T) {
	n := lineNetwork()
	require.NoError(t, n.Validate())

	v := n.View()
	assert.Equal(t, "line", v.Name)
	require.Len(t, v.Links, 2)
	assert.Equal(t, domain.NewPosition(50, 0), v.Links[0].Anchor)
	assert.Equal(t, domain.NewPosition(100, 50), v.Links[1].Anchor)
	assert.Same(t, v, n.View())
}

package domain

import (
	"errors"
	"fmt"
)

// Topology validation errors. All of them wrap ErrInvalidTopology.
var (
	ErrInvalidTopology = errors.New("invalid topology")
	ErrUnknownNodeType = fmt.Errorf("%w: unknown node type", ErrInvalidTopology)
	ErrEmptyNodeID     = fmt.Errorf("%w: empty node id", ErrInvalidTopology)
	ErrDuplicateNode   = fmt.Errorf("%w: duplicate node", ErrInvalidTopology)
	ErrUnknownNode     = fmt.Errorf("%w: unknown node", ErrInvalidTopology)
	ErrSelfLoop        = fmt.Errorf("%w: self loop", ErrInvalidTopology)
	ErrDuplicateEdge   = fmt.Errorf("%w: duplicate edge", ErrInvalidTopology)
	ErrNegativeWeight  = fmt.Errorf("%w: negative weight", ErrInvalidTopology)
	ErrHubNotConnected = fmt.Errorf("%w: hub not adjacent to every node", ErrInvalidTopology)
	ErrTooFewSpokes    = fmt.Errorf("%w: need at least two non-hub nodes", ErrInvalidTopology)
)

// Topology is the fixed graph packets travel over. It has a single hub
// adjacent to every other node. A Topology is immutable; accessors return
// copies.
type Topology struct {
	nodes []Node
	edges []Edge
	hub   string
	index map[string]int
}

// NewTopology validates the nodes and edges and builds a topology around hub
func NewTopology(nodes []Node, edges []Edge, hub string) (*Topology, error) {
	t := &Topology{
		nodes: make([]Node, len(nodes)),
		edges: make([]Edge, len(edges)),
		hub:   hub,
		index: make(map[string]int, len(nodes)),
	}
	copy(t.nodes, nodes)
	copy(t.edges, edges)

	for i, n := range t.nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %d: %w", i, ErrEmptyNodeID)
		}
		if !n.Type.Valid() {
			return nil, fmt.Errorf("node %s: %w: %q", n.ID, ErrUnknownNodeType, n.Type)
		}
		if _, exists := t.index[n.ID]; exists {
			return nil, fmt.Errorf("node %s: %w", n.ID, ErrDuplicateNode)
		}
		t.index[n.ID] = i
	}

	if _, ok := t.index[hub]; !ok {
		return nil, fmt.Errorf("hub %q: %w", hub, ErrUnknownNode)
	}

	seen := make(map[string]struct{}, len(t.edges))
	for _, e := range t.edges {
		if _, ok := t.index[e.From]; !ok {
			return nil, fmt.Errorf("edge %s: %w %q", e.ID(), ErrUnknownNode, e.From)
		}
		if _, ok := t.index[e.To]; !ok {
			return nil, fmt.Errorf("edge %s: %w %q", e.ID(), ErrUnknownNode, e.To)
		}
		if e.From == e.To {
			return nil, fmt.Errorf("edge %s: %w", e.ID(), ErrSelfLoop)
		}
		if e.Weight < 0 {
			return nil, fmt.Errorf("edge %s: %w", e.ID(), ErrNegativeWeight)
		}
		if _, dup := seen[e.ID()]; dup {
			return nil, fmt.Errorf("edge %s: %w", e.ID(), ErrDuplicateEdge)
		}
		seen[e.ID()] = struct{}{}
	}

	spokes := 0
	for _, n := range t.nodes {
		if n.ID == hub {
			continue
		}
		spokes++
		if !t.HasEdge(hub, n.ID) {
			return nil, fmt.Errorf("node %s: %w", n.ID, ErrHubNotConnected)
		}
	}
	if spokes < 2 {
		return nil, ErrTooFewSpokes
	}

	return t, nil
}

// DefaultTopology returns the four-router, one-switch diagram: every router
// hangs off switch E, with two router-to-router shortcuts that routing never
// takes.
func DefaultTopology() *Topology {
	nodes := []Node{
		NewNode("A", NodeTypeRouter, 80, 80),
		NewNode("B", NodeTypeRouter, 520, 80),
		NewNode("C", NodeTypeRouter, 80, 320),
		NewNode("D", NodeTypeRouter, 520, 320),
		NewNode("E", NodeTypeSwitch, 300, 200),
	}
	edges := []Edge{
		NewEdge("A", "E", 1),
		NewEdge("B", "E", 1),
		NewEdge("C", "E", 1),
		NewEdge("D", "E", 1),
		NewEdge("A", "B", 2),
		NewEdge("C", "D", 2),
	}

	t, err := NewTopology(nodes, edges, "E")
	if err != nil {
		panic(fmt.Sprintf("default topology: %v", err))
	}
	return t
}

// Hub returns the id of the hub node
func (t *Topology) Hub() string {
	return t.hub
}

// Node looks up a node by id
func (t *Topology) Node(id string) (Node, bool) {
	i, ok := t.index[id]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

// Nodes returns all nodes in declaration order
func (t *Topology) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Edges returns all edges in declaration order
func (t *Topology) Edges() []Edge {
	out := make([]Edge, len(t.edges))
	copy(out, t.edges)
	return out
}

// Spokes returns the non-hub nodes in declaration order
func (t *Topology) Spokes() []Node {
	out := make([]Node, 0, len(t.nodes)-1)
	for _, n := range t.nodes {
		if n.ID != t.hub {
			out = append(out, n)
		}
	}
	return out
}

// Edge finds the edge joining a and b in either direction
func (t *Topology) Edge(a, b string) (Edge, bool) {
	for _, e := range t.edges {
		if e.Connects(a, b) {
			return e, true
		}
	}
	return Edge{}, false
}

// HasEdge reports whether a and b are adjacent
func (t *Topology) HasEdge(a, b string) bool {
	_, ok := t.Edge(a, b)
	return ok
}

// Neighbors returns the ids adjacent to id, in edge declaration order
func (t *Topology) Neighbors(id string) []string {
	var out []string
	for _, e := range t.edges {
		if other := e.Other(id); other != "" {
			out = append(out, other)
		}
	}
	return out
}

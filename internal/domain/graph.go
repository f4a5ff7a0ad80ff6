package domain

import "fmt"

// Graph is the read-only view of a topology handed to renderers
type Graph struct {
	Hub   string      `json:"hub"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode represents a node in the visualization
type GraphNode struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
}

// GraphEdge represents an edge in the visualization, with the label anchor
// already computed
type GraphEdge struct {
	ID     string   `json:"id"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Weight int      `json:"weight"`
	Label  string   `json:"label"`
	Anchor Position `json:"anchor"`
}

// DeriveGraph converts a Topology to its renderer view
func DeriveGraph(t *Topology) *Graph {
	graph := &Graph{
		Hub:   t.Hub(),
		Nodes: make([]GraphNode, 0, len(t.nodes)),
		Edges: make([]GraphEdge, 0, len(t.edges)),
	}

	for _, n := range t.nodes {
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:       n.ID,
			Type:     n.Type,
			Position: n.Position,
		})
	}

	for _, e := range t.edges {
		from, _ := t.Node(e.From)
		to, _ := t.Node(e.To)
		graph.Edges = append(graph.Edges, GraphEdge{
			ID:     e.ID(),
			From:   e.From,
			To:     e.To,
			Weight: e.Weight,
			Label:  fmt.Sprintf("%d", e.Weight),
			Anchor: from.Position.Midpoint(to.Position),
		})
	}

	return graph
}

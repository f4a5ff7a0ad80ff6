package domain

import "fmt"

// Edge is an undirected link between two nodes. Weight is shown on the
// diagram only; routing never reads it.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// NewEdge creates a new edge
func NewEdge(from, to string, weight int) Edge {
	return Edge{From: from, To: to, Weight: weight}
}

// ID returns a deterministic identifier independent of endpoint order
func (e Edge) ID() string {
	from, to := e.From, e.To
	if from > to {
		from, to = to, from
	}
	return fmt.Sprintf("%s-%s", from, to)
}

// Connects reports whether the edge joins a and b in either direction
func (e Edge) Connects(a, b string) bool {
	return (e.From == a && e.To == b) || (e.From == b && e.To == a)
}

// Touches reports whether id is one of the edge endpoints
func (e Edge) Touches(id string) bool {
	return e.From == id || e.To == id
}

// Other returns the endpoint opposite to id, or "" if id is not an endpoint
func (e Edge) Other(id string) string {
	switch id {
	case e.From:
		return e.To
	case e.To:
		return e.From
	default:
		return ""
	}
}

package domain

import "fmt"

// NodeType represents the category of a diagram node
type NodeType string

const (
	NodeTypeRouter NodeType = "router"
	NodeTypeSwitch NodeType = "switch"
)

// Valid reports whether t is a known node category
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeRouter, NodeTypeSwitch:
		return true
	default:
		return false
	}
}

// ParseNodeType converts a string to NodeType
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
	}
	return t, nil
}

// Node is a fixed point of the topology. Nodes are immutable once the
// topology is built.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
}

// NewNode creates a new node
func NewNode(id string, nodeType NodeType, x, y float64) Node {
	return Node{
		ID:       id,
		Type:     nodeType,
		Position: NewPosition(x, y),
	}
}

// IsSwitch reports whether the node is a switch
func (n Node) IsSwitch() bool {
	return n.Type == NodeTypeSwitch
}

package internet

import (
	"errors"
	"fmt"

	"packetflow/internal/domain"
)

var (
	ErrInvalidNetwork = errors.New("invalid network")
	ErrUnknownNetwork = errors.New("unknown network")
)

// Network names in the built-in catalog
const (
	NetworkModern = "modern"
	NetworkOSI    = "osi"
)

// Protocol labels a link and colors the packets crossing it
type Protocol string

const (
	ProtocolMQTT  Protocol = "MQTT"
	ProtocolHTTP  Protocol = "HTTP/TCP"
	ProtocolOSIL5 Protocol = "OSI L5"
	ProtocolOSIL6 Protocol = "OSI L6"
	ProtocolOSIL7 Protocol = "OSI L7"
)

var protocolColors = map[Protocol]domain.Color{
	ProtocolMQTT:  {R: 100, G: 255, B: 100},
	ProtocolHTTP:  {R: 100, G: 150, B: 255},
	ProtocolOSIL5: {R: 255, G: 200, B: 100},
	ProtocolOSIL6: {R: 255, G: 150, B: 200},
	ProtocolOSIL7: {R: 200, G: 100, B: 255},
}

// DefaultProtocolColor is used for protocols without an assigned color
var DefaultProtocolColor = domain.Color{R: 150, G: 150, B: 150}

// Color returns the packet color for p
func (p Protocol) Color() domain.Color {
	if c, ok := protocolColors[p]; ok {
		return c
	}
	return DefaultProtocolColor
}

// Node is a device on a network diagram. Type selects the drawn shape.
type Node struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Label    string          `json:"label"`
	Position domain.Position `json:"position"`
}

// Link is an unordered connection between two nodes
type Link struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Protocol Protocol `json:"protocol"`
}

// Connects reports whether l joins a and b in either direction
func (l Link) Connects(a, b string) bool {
	return (l.From == a && l.To == b) || (l.From == b && l.To == a)
}

// Network is a named diagram plus the flows packets follow across it
type Network struct {
	Name        string
	Title       string
	Description string
	Nodes       []Node
	Links       []Link
	// Patterns are node sequences; consecutive entries must be linked
	Patterns [][]string

	nodes map[string]Node
	view  *NetworkView
}

// NetworkView is the render form of a network. It is built once and shared.
type NetworkView struct {
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Nodes       []Node     `json:"nodes"`
	Links       []LinkView `json:"links"`
}

// LinkView is a link with the point its protocol label is drawn at
type LinkView struct {
	Link
	Anchor domain.Position `json:"anchor"`
}

// Validate checks node ids, link endpoints and that every pattern walks
// existing links, then indexes the network for lookups
func (n *Network) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidNetwork)
	}

	nodes := make(map[string]Node, len(n.Nodes))
	for _, node := range n.Nodes {
		if node.ID == "" {
			return fmt.Errorf("%w: %s: node without id", ErrInvalidNetwork, n.Name)
		}
		if _, dup := nodes[node.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate node %q", ErrInvalidNetwork, n.Name, node.ID)
		}
		nodes[node.ID] = node
	}

	for _, l := range n.Links {
		if _, ok := nodes[l.From]; !ok {
			return fmt.Errorf("%w: %s: link from unknown node %q", ErrInvalidNetwork, n.Name, l.From)
		}
		if _, ok := nodes[l.To]; !ok {
			return fmt.Errorf("%w: %s: link to unknown node %q", ErrInvalidNetwork, n.Name, l.To)
		}
		if l.From == l.To {
			return fmt.Errorf("%w: %s: self link on %q", ErrInvalidNetwork, n.Name, l.From)
		}
	}

	if len(n.Patterns) == 0 {
		return fmt.Errorf("%w: %s: no flow patterns", ErrInvalidNetwork, n.Name)
	}
	for i, pattern := range n.Patterns {
		if len(pattern) < 2 {
			return fmt.Errorf("%w: %s: pattern %d has fewer than two nodes", ErrInvalidNetwork, n.Name, i)
		}
		for j := 1; j < len(pattern); j++ {
			if _, ok := n.link(pattern[j-1], pattern[j]); !ok {
				return fmt.Errorf("%w: %s: pattern %d: no link %s-%s",
					ErrInvalidNetwork, n.Name, i, pattern[j-1], pattern[j])
			}
		}
	}

	n.nodes = nodes
	n.view = n.buildView()
	return nil
}

// Node looks up a node by id. Validate must have succeeded.
func (n *Network) Node(id string) (Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// Link returns the link joining a and b in either direction
func (n *Network) Link(a, b string) (Link, bool) {
	return n.link(a, b)
}

func (n *Network) link(a, b string) (Link, bool) {
	for _, l := range n.Links {
		if l.Connects(a, b) {
			return l, true
		}
	}
	return Link{}, false
}

// View returns the shared render form. Validate must have succeeded.
func (n *Network) View() *NetworkView {
	return n.view
}

func (n *Network) buildView() *NetworkView {
	v := &NetworkView{
		Name:        n.Name,
		Title:       n.Title,
		Description: n.Description,
		Nodes:       append([]Node(nil), n.Nodes...),
		Links:       make([]LinkView, 0, len(n.Links)),
	}
	for _, l := range n.Links {
		from := n.nodes[l.From]
		to := n.nodes[l.To]
		v.Links = append(v.Links, LinkView{Link: l, Anchor: from.Position.Midpoint(to.Position)})
	}
	return v
}

func node(id, typ, label string, x, y float64) Node {
	return Node{ID: id, Type: typ, Label: label, Position: domain.NewPosition(x, y)}
}

// ModernNetwork is the distributed TCP/IP diagram: IoT devices publish
// through an MQTT broker, load balancers spread traffic over data centers,
// and CDN edges serve users.
func ModernNetwork() *Network {
	return &Network{
		Name:        NetworkModern,
		Title:       "Modern Internet (TCP/IP)",
		Description: "Distributed, end-to-end intelligence. Protocols: MQTT, HTTP/TCP, CDN",
		Nodes: []Node{
			node("iot1", "iot", "IoT Device 1", 80, 100),
			node("iot2", "iot", "IoT Device 2", 80, 180),
			node("iot3", "iot", "IoT Device 3", 80, 260),
			node("mqtt", "mqtt", "MQTT Broker", 200, 180),
			node("lb1", "loadbalancer", "Load Balancer", 350, 120),
			node("lb2", "loadbalancer", "Load Balancer", 350, 240),
			node("dc1", "datacenter", "Data Center 1", 500, 80),
			node("dc2", "datacenter", "Data Center 2", 500, 180),
			node("dc3", "datacenter", "Data Center 3", 500, 280),
			node("cdn1", "cdn", "CDN Edge 1", 650, 120),
			node("cdn2", "cdn", "CDN Edge 2", 650, 240),
			node("user1", "user", "User 1", 750, 100),
			node("user2", "user", "User 2", 750, 180),
			node("user3", "user", "User 3", 750, 260),
		},
		Links: []Link{
			{"iot1", "mqtt", ProtocolMQTT},
			{"iot2", "mqtt", ProtocolMQTT},
			{"iot3", "mqtt", ProtocolMQTT},
			{"mqtt", "lb1", ProtocolHTTP},
			{"mqtt", "lb2", ProtocolHTTP},
			{"lb1", "dc1", ProtocolHTTP},
			{"lb1", "dc2", ProtocolHTTP},
			{"lb2", "dc2", ProtocolHTTP},
			{"lb2", "dc3", ProtocolHTTP},
			{"dc1", "cdn1", ProtocolHTTP},
			{"dc2", "cdn1", ProtocolHTTP},
			{"dc2", "cdn2", ProtocolHTTP},
			{"dc3", "cdn2", ProtocolHTTP},
			{"cdn1", "user1", ProtocolHTTP},
			{"cdn1", "user2", ProtocolHTTP},
			{"cdn2", "user2", ProtocolHTTP},
			{"cdn2", "user3", ProtocolHTTP},
		},
		Patterns: [][]string{
			{"iot1", "mqtt", "lb1", "dc1", "cdn1", "user1"},
			{"iot2", "mqtt", "lb2", "dc2", "cdn2", "user2"},
			{"iot3", "mqtt", "lb1", "dc2", "cdn1", "user1"},
			{"iot1", "mqtt", "lb2", "dc3", "cdn2", "user3"},
			{"user1", "cdn1", "dc1", "lb1", "mqtt"},
			{"user2", "cdn2", "dc2", "lb2", "mqtt"},
			{"user3", "cdn2", "dc3", "lb2", "mqtt"},
		},
	}
}

// OSINetwork is the centralized alternative where every flow passes the
// session, presentation and gateway layers in strict order
func OSINetwork() *Network {
	return &Network{
		Name:        NetworkOSI,
		Title:       "OSI-based Architecture",
		Description: "Centralized, layer-by-layer processing. Protocols: OSI L5/L6/L7 with strict layering",
		Nodes: []Node{
			node("term1", "terminal", "Terminal 1", 80, 100),
			node("term2", "terminal", "Terminal 2", 80, 180),
			node("term3", "terminal", "Terminal 3", 80, 260),
			node("session1", "session", "Session Control", 200, 140),
			node("session2", "session", "Session Control", 200, 220),
			node("present", "presentation", "Presentation Layer", 350, 180),
			node("gateway", "gateway", "OSI Gateway", 500, 180),
			node("service1", "service", "Service 1", 650, 120),
			node("service2", "service", "Service 2", 650, 180),
			node("service3", "service", "Service 3", 650, 240),
		},
		Links: []Link{
			{"term1", "session1", ProtocolOSIL5},
			{"term2", "session1", ProtocolOSIL5},
			{"term3", "session2", ProtocolOSIL5},
			{"session1", "present", ProtocolOSIL6},
			{"session2", "present", ProtocolOSIL6},
			{"present", "gateway", ProtocolOSIL7},
			{"gateway", "service1", ProtocolOSIL7},
			{"gateway", "service2", ProtocolOSIL7},
			{"gateway", "service3", ProtocolOSIL7},
		},
		Patterns: [][]string{
			{"term1", "session1", "present", "gateway", "service1"},
			{"term2", "session1", "present", "gateway", "service2"},
			{"term3", "session2", "present", "gateway", "service3"},
			{"service1", "gateway", "present", "session1", "term1"},
			{"service2", "gateway", "present", "session2", "term3"},
			{"service3", "gateway", "present", "session1", "term2"},
		},
	}
}

// Known reports whether name is in the built-in catalog. The empty name
// selects the first network and is known too.
func Known(name string) bool {
	if name == "" {
		return true
	}
	for _, n := range Catalog() {
		if n.Name == name {
			return true
		}
	}
	return false
}

// Catalog returns fresh copies of the built-in networks in switch order
func Catalog() []*Network {
	return []*Network{ModernNetwork(), OSINetwork()}
}

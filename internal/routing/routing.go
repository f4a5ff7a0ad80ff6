// Package routing decides the next hop of a packet.
//
// Two policies exist. The hub rule sends everything through the hub first;
// shortcut edges between routers are drawn on the diagram but never used.
// A pattern router walks one fixed flow, node by node.
package routing

import (
	"errors"
	"fmt"
)

// ErrNoRoute is returned by Route when the destination is not reached
// within the hop limit.
var ErrNoRoute = errors.New("no route")

// Router picks the node a packet at current should move to next
type Router interface {
	NextHop(current, destination string) string
}

// HubRouter forces all router-to-router traffic through Hub
type HubRouter struct {
	Hub string
}

// NewHubRouter creates a router for the given hub id
func NewHubRouter(hub string) HubRouter {
	return HubRouter{Hub: hub}
}

// NextHop returns destination when already there or when at the hub, and the
// hub otherwise, even if current and destination share a direct edge.
func (r HubRouter) NextHop(current, destination string) string {
	if current == destination {
		return destination
	}
	if current == r.Hub {
		return destination
	}
	return r.Hub
}

// PatternRouter follows a fixed sequence of nodes. It only knows how to
// move forward along its pattern; any other position has no next hop.
type PatternRouter struct {
	pattern []string
	index   map[string]int
}

// NewPatternRouter creates a router for pattern. A node that appears twice
// keeps its first position.
func NewPatternRouter(pattern []string) PatternRouter {
	r := PatternRouter{
		pattern: append([]string(nil), pattern...),
		index:   make(map[string]int, len(pattern)),
	}
	for i, id := range r.pattern {
		if _, seen := r.index[id]; !seen {
			r.index[id] = i
		}
	}
	return r
}

// Pattern returns a copy of the node sequence
func (r PatternRouter) Pattern() []string {
	return append([]string(nil), r.pattern...)
}

// NextHop returns the node after current when destination lies further down
// the pattern, destination when already there, and "" otherwise.
func (r PatternRouter) NextHop(current, destination string) string {
	if current == destination {
		return destination
	}
	i, ok := r.index[current]
	if !ok {
		return ""
	}
	j, ok := r.index[destination]
	if !ok || j <= i {
		return ""
	}
	return r.pattern[i+1]
}

// MaxHops bounds Route. The hub rule needs at most two.
const MaxHops = 16

// Route expands the full path from source to destination, source included
func Route(r Router, source, destination string) ([]string, error) {
	path := []string{source}
	current := source
	for hops := 0; current != destination; hops++ {
		if hops >= MaxHops {
			return path, fmt.Errorf("%w: %s -> %s after %d hops", ErrNoRoute, source, destination, hops)
		}
		next := r.NextHop(current, destination)
		if next == "" {
			return path, fmt.Errorf("%w: %s -> %s stuck at %s", ErrNoRoute, source, destination, current)
		}
		current = next
		path = append(path, current)
	}
	return path, nil
}

// HopsRemaining returns how many hops separate current from destination
func HopsRemaining(r Router, current, destination string) (int, error) {
	path, err := Route(r, current, destination)
	if err != nil {
		return 0, err
	}
	return len(path) - 1, nil
}

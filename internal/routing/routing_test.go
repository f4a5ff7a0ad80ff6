package routing

import (
	"errors"
	"reflect"
	"testing"

	"packetflow/internal/domain"
)

func TestHubRouterNextHop(t *testing.T) {
	r := NewHubRouter("E")

	tests := []struct {
		name        string
		current     string
		destination string
		want        string
	}{
		{"hub forwards to destination", "E", "C", "C"},
		{"spoke to hub", "A", "E", "E"},
		{"spoke to spoke goes via hub", "A", "C", "E"},
		{"shortcut pair still goes via hub", "A", "B", "E"},
		{"other shortcut pair", "D", "C", "E"},
		{"already at destination", "B", "B", "B"},
		{"hub to itself", "E", "E", "E"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.NextHop(tt.current, tt.destination); got != tt.want {
				t.Errorf("NextHop(%s, %s) = %s, want %s", tt.current, tt.destination, got, tt.want)
			}
		})
	}
}

func TestNextHopIsAlwaysAdjacent(t *testing.T) {
	topo := domain.DefaultTopology()
	r := NewHubRouter(topo.Hub())

	for _, from := range topo.Nodes() {
		for _, to := range topo.Nodes() {
			if from.ID == to.ID {
				continue
			}
			next := r.NextHop(from.ID, to.ID)
			if !topo.HasEdge(from.ID, next) {
				t.Errorf("NextHop(%s, %s) = %s is not adjacent", from.ID, to.ID, next)
			}
		}
	}
}

func TestRoute(t *testing.T) {
	r := NewHubRouter("E")

	t.Run("spoke to spoke", func(t *testing.T) {
		path, err := Route(r, "A", "C")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"A", "E", "C"}
		if !reflect.DeepEqual(path, want) {
			t.Errorf("expected %v, got %v", want, path)
		}
	})

	t.Run("same node", func(t *testing.T) {
		path, err := Route(r, "B", "B")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(path, []string{"B"}) {
			t.Errorf("expected [B], got %v", path)
		}
	})

	t.Run("at most two hops between spokes", func(t *testing.T) {
		topo := domain.DefaultTopology()
		for _, a := range topo.Spokes() {
			for _, b := range topo.Spokes() {
				hops, err := HopsRemaining(r, a.ID, b.ID)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if a.ID == b.ID && hops != 0 {
					t.Errorf("%s -> %s: expected 0 hops, got %d", a.ID, b.ID, hops)
				}
				if a.ID != b.ID && hops != 2 {
					t.Errorf("%s -> %s: expected 2 hops, got %d", a.ID, b.ID, hops)
				}
			}
		}
	})
}

type loopRouter struct{}

func (loopRouter) NextHop(current, destination string) string {
	if current == "X" {
		return "Y"
	}
	return "X"
}

func TestRouteDetectsLoops(t *testing.T) {
	_, err := Route(loopRouter{}, "X", "Z")
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}

func TestPatternRouterNextHop(t *testing.T) {
	r := NewPatternRouter([]string{"iot1", "mqtt", "lb1", "dc1"})

	tests := []struct {
		name        string
		current     string
		destination string
		want        string
	}{
		{"first hop", "iot1", "dc1", "mqtt"},
		{"middle hop", "mqtt", "dc1", "lb1"},
		{"last hop", "lb1", "dc1", "dc1"},
		{"intermediate destination", "iot1", "lb1", "mqtt"},
		{"already there", "dc1", "dc1", "dc1"},
		{"destination behind", "lb1", "mqtt", ""},
		{"off pattern", "user1", "dc1", ""},
		{"unknown destination", "iot1", "cdn1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.NextHop(tt.current, tt.destination); got != tt.want {
				t.Errorf("NextHop(%s, %s) = %q, want %q", tt.current, tt.destination, got, tt.want)
			}
		})
	}
}

func TestPatternRouterCopiesPattern(t *testing.T) {
	pattern := []string{"a", "b", "c"}
	r := NewPatternRouter(pattern)
	pattern[1] = "z"

	if got := r.NextHop("a", "c"); got != "b" {
		t.Errorf("NextHop(a, c) = %q after caller mutation, want b", got)
	}
	out := r.Pattern()
	out[0] = "z"
	if got := r.NextHop("a", "c"); got != "b" {
		t.Errorf("NextHop(a, c) = %q after Pattern mutation, want b", got)
	}
}

func TestRouteAlongPattern(t *testing.T) {
	r := NewPatternRouter([]string{"term1", "session1", "present", "gateway", "service1"})

	path, err := Route(r, "term1", "service1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"term1", "session1", "present", "gateway", "service1"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("expected %v, got %v", want, path)
	}

	if _, err := Route(r, "gateway", "term1"); !errors.Is(err, ErrNoRoute) {
		t.Errorf("expected ErrNoRoute walking backwards, got %v", err)
	}
}

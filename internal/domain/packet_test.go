package domain

import "testing"

func TestPaletteColor(t *testing.T) {
	if PaletteColor(0) != (Color{R: 100, G: 150, B: 255}) {
		t.Errorf("expected blue for index 0, got %+v", PaletteColor(0))
	}
	if PaletteColor(3) != (Color{R: 255, G: 200, B: 100}) {
		t.Errorf("expected orange for index 3, got %+v", PaletteColor(3))
	}
	if PaletteColor(4) != PaletteColor(0) {
		t.Error("expected palette to cycle")
	}
}

func TestPacketHops(t *testing.T) {
	p := &Packet{Source: "A", Destination: "C", Current: "A", Path: []string{"A"}}
	if p.Hops() != 0 {
		t.Errorf("expected 0 hops, got %d", p.Hops())
	}
	if p.Arrived() {
		t.Error("expected packet not to have arrived")
	}

	p.Path = append(p.Path, "E", "C")
	p.Current = "C"
	if p.Hops() != 2 {
		t.Errorf("expected 2 hops, got %d", p.Hops())
	}
	if !p.Arrived() {
		t.Error("expected packet to have arrived")
	}
}

func TestPacketClone(t *testing.T) {
	p := &Packet{ID: 7, Path: []string{"A", "E"}}
	c := p.Clone()

	c.Path[0] = "Z"
	if p.Path[0] != "A" {
		t.Error("expected Clone to copy the path")
	}
	if c.ID != 7 {
		t.Errorf("expected ID 7, got %d", c.ID)
	}
}

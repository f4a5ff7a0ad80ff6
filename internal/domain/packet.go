package domain

// Color is an RGB display color
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// SourcePalette colors packets by the index of their source among the
// non-hub nodes: blue, pink, green, orange.
var SourcePalette = []Color{
	{R: 100, G: 150, B: 255},
	{R: 255, G: 100, B: 150},
	{R: 150, G: 255, B: 100},
	{R: 255, G: 200, B: 100},
}

// PaletteColor returns the palette entry for index i, cycling when the
// topology has more sources than colors.
func PaletteColor(i int) Color {
	if i < 0 {
		i = -i
	}
	return SourcePalette[i%len(SourcePalette)]
}

// Packet is a token travelling from Source to Destination one hop at a time.
// Current and Target are always adjacent while the packet is in flight.
type Packet struct {
	ID           int      `json:"id"`
	Source       string   `json:"source"`
	Destination  string   `json:"destination"`
	Current      string   `json:"current"`
	Target       string   `json:"target"`
	Progress     float64  `json:"progress"`
	Position     Position `json:"position"`
	Color        Color    `json:"color"`
	Path         []string `json:"path"`
	SpawnedFrame int64    `json:"spawned_frame"`
}

// Hops returns the number of edges traversed so far
func (p *Packet) Hops() int {
	if len(p.Path) == 0 {
		return 0
	}
	return len(p.Path) - 1
}

// Arrived reports whether the packet sits on its destination
func (p *Packet) Arrived() bool {
	return p.Current == p.Destination
}

// Clone returns a deep copy safe to hand to readers
func (p *Packet) Clone() Packet {
	c := *p
	c.Path = make([]string, len(p.Path))
	copy(c.Path, p.Path)
	return c
}

package domain

// Position is a point on the diagram canvas
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NewPosition creates a new position
func NewPosition(x, y float64) Position {
	return Position{X: x, Y: y}
}

// Lerp returns the point at fraction t along the segment from p to q.
// t is not clamped.
func (p Position) Lerp(q Position, t float64) Position {
	return Position{
		X: lerp(p.X, q.X, t),
		Y: lerp(p.Y, q.Y, t),
	}
}

// Midpoint returns the point halfway between p and q (where edge weights are labelled)
func (p Position) Midpoint(q Position) Position {
	return p.Lerp(q, 0.5)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

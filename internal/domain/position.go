package domain

// Position is a point in world or screen space
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Position{X: x, Y: y}
func Pt(x, y float64) Position {
	return Position{X: x, Y: y}
}

// Add returns p+q
func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p*k
func (p Position) Scale(k float64) Position {
	return Position{X: p.X * k, Y: p.Y * k}
}

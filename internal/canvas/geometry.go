package canvas

import (
	"math"

	"dialoguetree/internal/domain"
)

// Node card layout in world units
const (
	NodeWidth    = 250.0
	NodeHeight   = 120.0
	HeaderHeight = 30.0
	ButtonSize   = 20.0
	ButtonMargin = 5.0
	PortRadius   = 8.0
)

// Rect is an axis-aligned box
type Rect struct {
	Min domain.Position
	Max domain.Position
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p domain.Position) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Segment is a straight line between two world points
type Segment struct {
	From domain.Position
	To   domain.Position
}

// EdgeSegment is the drawable line for one connection
type EdgeSegment struct {
	ConnectionID int
	Segment
}

// NodeBounds returns the card rectangle of n
func NodeBounds(n domain.Node) Rect {
	return Rect{Min: n.Position, Max: n.Position.Add(domain.Pt(NodeWidth, NodeHeight))}
}

// PortAnchor returns where edges attach: the right edge's vertical centre
// for outputs, the left edge's for inputs.
func PortAnchor(n domain.Node, kind domain.PortKind) domain.Position {
	y := n.Y + NodeHeight/2
	if kind == domain.PortOutput {
		return domain.Pt(n.X+NodeWidth, y)
	}
	return domain.Pt(n.X, y)
}

// EditButton returns the header button that opens the node editor
func EditButton(n domain.Node) Rect {
	x := n.X + NodeWidth - 2*(ButtonSize+ButtonMargin)
	return button(x, n.Y+ButtonMargin)
}

// DeleteButton returns the header button that removes the node
func DeleteButton(n domain.Node) Rect {
	x := n.X + NodeWidth - (ButtonSize + ButtonMargin)
	return button(x, n.Y+ButtonMargin)
}

func button(x, y float64) Rect {
	return Rect{Min: domain.Pt(x, y), Max: domain.Pt(x+ButtonSize, y+ButtonSize)}
}

// Target classifies what lies under a point
type Target int

const (
	TargetCanvas Target = iota
	TargetBody
	TargetPort
	TargetEditButton
	TargetDeleteButton
)

func (t Target) String() string {
	switch t {
	case TargetBody:
		return "body"
	case TargetPort:
		return "port"
	case TargetEditButton:
		return "edit"
	case TargetDeleteButton:
		return "delete"
	}
	return "canvas"
}

// Hit is the result of a hit test
type Hit struct {
	Target Target
	NodeID int
	Port   domain.PortKind
}

// HitTest finds what is under the world point p. Later nodes are drawn on
// top, so they win. Ports take precedence over the body they sit on, and
// header buttons over the body beneath them.
func HitTest(nodes []domain.Node, p domain.Position) Hit {
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		for _, kind := range []domain.PortKind{domain.PortInput, domain.PortOutput} {
			if distance(PortAnchor(n, kind), p) <= PortRadius {
				return Hit{Target: TargetPort, NodeID: n.ID, Port: kind}
			}
		}
		if !NodeBounds(n).Contains(p) {
			continue
		}
		switch {
		case EditButton(n).Contains(p):
			return Hit{Target: TargetEditButton, NodeID: n.ID}
		case DeleteButton(n).Contains(p):
			return Hit{Target: TargetDeleteButton, NodeID: n.ID}
		}
		return Hit{Target: TargetBody, NodeID: n.ID}
	}
	return Hit{Target: TargetCanvas}
}

// EdgeSegments computes the line for every connection from the current
// node positions. Connections whose endpoints are missing are skipped.
func EdgeSegments(nodes []domain.Node, conns []domain.Connection) []EdgeSegment {
	byID := make(map[int]domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	out := make([]EdgeSegment, 0, len(conns))
	for _, c := range conns {
		from, ok := byID[c.From]
		if !ok {
			continue
		}
		to, ok := byID[c.To]
		if !ok {
			continue
		}
		out = append(out, EdgeSegment{
			ConnectionID: c.ID,
			Segment: Segment{
				From: PortAnchor(from, domain.PortOutput),
				To:   PortAnchor(to, domain.PortInput),
			},
		})
	}
	return out
}

func distance(a, b domain.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

package editor

import (
	"dialoguetree/internal/canvas"
	"dialoguetree/internal/domain"
)

// NodeBox is a node as drawn
type NodeBox struct {
	Node     domain.Node
	Bounds   canvas.Rect
	Input    domain.Position
	Output   domain.Position
	Selected bool
	Dragging bool
	Pending  bool
}

// Scene is everything a renderer needs for one frame. Geometry is in world
// units; apply Zoom and Pan to reach the screen.
type Scene struct {
	Zoom  float64
	Pan   domain.Position
	Nodes []NodeBox
	Edges []canvas.EdgeSegment

	// Preview is the rubber band of a pending connection
	Preview *canvas.Segment
}

// Scene builds the current frame. Edge endpoints always come from the
// node positions of this call.
func (s *Session) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.store.Nodes()
	pendingID, _, pending := s.connector.Pending()

	sc := Scene{
		Zoom:  s.view.Zoom(),
		Pan:   s.view.Pan(),
		Nodes: make([]NodeBox, 0, len(nodes)),
		Edges: canvas.EdgeSegments(nodes, s.store.Connections()),
	}
	for _, n := range nodes {
		sc.Nodes = append(sc.Nodes, NodeBox{
			Node:     n,
			Bounds:   canvas.NodeBounds(n),
			Input:    canvas.PortAnchor(n, domain.PortInput),
			Output:   canvas.PortAnchor(n, domain.PortOutput),
			Selected: n.ID == s.selected,
			Dragging: s.drag.Active() && s.drag.NodeID() == n.ID,
			Pending:  pending && pendingID == n.ID,
		})
	}
	if seg, ok := s.connector.Preview(); ok {
		sc.Preview = &seg
	}
	return sc
}

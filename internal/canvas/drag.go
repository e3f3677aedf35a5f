package canvas

import "dialoguetree/internal/domain"

// NodeMover reads and repositions nodes. *graph.Store satisfies it.
type NodeMover interface {
	Node(id int) (domain.Node, bool)
	UpdateNode(id int, patch domain.NodePatch) (domain.Node, error)
}

// DragController moves one node at a time with the pointer.
// The grab offset is captured in screen space on Begin so the node does
// not jump under the cursor.
type DragController struct {
	nodes NodeMover
	view  *Viewport

	active bool
	nodeID int
	offset domain.Position
}

// NewDragController creates a controller bound to a viewport
func NewDragController(nodes NodeMover, view *Viewport) *DragController {
	return &DragController{nodes: nodes, view: view}
}

// Begin grabs nodeID at the screen pointer
func (d *DragController) Begin(nodeID int, pointer domain.Position) error {
	n, ok := d.nodes.Node(nodeID)
	if !ok {
		return domain.NotFoundf("drag", "node %d not found", nodeID)
	}
	d.active = true
	d.nodeID = nodeID
	d.offset = pointer.Sub(d.view.WorldToScreen(n.Position))
	return nil
}

// Move repositions the grabbed node under the pointer. Outside a gesture
// it does nothing. If the node vanished mid-gesture the gesture ends.
func (d *DragController) Move(pointer domain.Position) (domain.Node, error) {
	if !d.active {
		return domain.Node{}, nil
	}
	world := d.view.ScreenToWorld(pointer.Sub(d.offset))
	n, err := d.nodes.UpdateNode(d.nodeID, domain.MovePatch(world))
	if err != nil {
		d.End()
		return domain.Node{}, err
	}
	return n, nil
}

// End releases the node
func (d *DragController) End() {
	d.active = false
	d.nodeID = 0
	d.offset = domain.Position{}
}

// Active reports whether a node is grabbed
func (d *DragController) Active() bool {
	return d.active
}

// NodeID returns the grabbed node, 0 when idle
func (d *DragController) NodeID() int {
	return d.nodeID
}

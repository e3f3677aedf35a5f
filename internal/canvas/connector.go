package canvas

import "dialoguetree/internal/domain"

// Linker creates connections between nodes. *graph.Store satisfies it.
type Linker interface {
	Node(id int) (domain.Node, bool)
	CreateConnection(from, to int) (domain.Connection, error)
}

// Outcome says what a port activation did
type Outcome int

const (
	// OutcomeStarted means a first port was selected
	OutcomeStarted Outcome = iota
	// OutcomeConnected means a connection was created
	OutcomeConnected
	// OutcomeCancelled means the second port was on the same node
	OutcomeCancelled
	// OutcomeRejected means both ports were the same kind
	OutcomeRejected
	// OutcomeFailed means the store refused the connection
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeConnected:
		return "connected"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeRejected:
		return "rejected"
	}
	return "failed"
}

// Result of ConnectionBuilder.Activate
type Result struct {
	Outcome    Outcome
	Connection domain.Connection
	Err        error
}

// ConnectionBuilder turns two port activations into a connection.
// It is Idle or Pending on one (node, port); every second activation
// returns it to Idle whatever happens.
type ConnectionBuilder struct {
	graph Linker
	view  *Viewport

	pending bool
	nodeID  int
	port    domain.PortKind

	pointer    domain.Position
	hasPointer bool
}

// NewConnectionBuilder creates an idle builder
func NewConnectionBuilder(graph Linker, view *Viewport) *ConnectionBuilder {
	return &ConnectionBuilder{graph: graph, view: view}
}

// Pending returns the selected port when a connection is in progress
func (b *ConnectionBuilder) Pending() (nodeID int, port domain.PortKind, ok bool) {
	return b.nodeID, b.port, b.pending
}

// Activate handles a click on a port
func (b *ConnectionBuilder) Activate(nodeID int, port domain.PortKind) Result {
	if !b.pending {
		b.pending = true
		b.nodeID = nodeID
		b.port = port
		b.hasPointer = false
		return Result{Outcome: OutcomeStarted}
	}

	first, firstPort := b.nodeID, b.port
	b.Cancel()

	if nodeID == first {
		return Result{Outcome: OutcomeCancelled}
	}
	if port == firstPort {
		return Result{Outcome: OutcomeRejected}
	}

	from, to := first, nodeID
	if firstPort == domain.PortInput {
		from, to = nodeID, first
	}
	conn, err := b.graph.CreateConnection(from, to)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	return Result{Outcome: OutcomeConnected, Connection: conn}
}

// Cancel drops any pending selection
func (b *ConnectionBuilder) Cancel() {
	b.pending = false
	b.nodeID = 0
	b.port = ""
	b.hasPointer = false
}

// PointerMove records the screen pointer for the preview line
func (b *ConnectionBuilder) PointerMove(pointer domain.Position) {
	if !b.pending {
		return
	}
	b.pointer = pointer
	b.hasPointer = true
}

// Preview returns the rubber-band line from the pending port to the
// pointer in world space. It is false when idle or when the pending node
// no longer exists.
func (b *ConnectionBuilder) Preview() (Segment, bool) {
	if !b.pending {
		return Segment{}, false
	}
	n, ok := b.graph.Node(b.nodeID)
	if !ok {
		return Segment{}, false
	}
	anchor := PortAnchor(n, b.port)
	end := anchor
	if b.hasPointer {
		end = b.view.ScreenToWorld(b.pointer)
	}
	return Segment{From: anchor, To: end}, true
}

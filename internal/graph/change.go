package graph

import "dialoguetree/internal/domain"

// ChangeKind identifies a store mutation
type ChangeKind string

const (
	NodeCreated       ChangeKind = "node_created"
	NodeUpdated       ChangeKind = "node_updated"
	NodeDeleted       ChangeKind = "node_deleted"
	ConnectionCreated ChangeKind = "connection_created"
	ConnectionDeleted ChangeKind = "connection_deleted"
	ElementsChanged   ChangeKind = "elements_changed"
	Replaced          ChangeKind = "replaced"
)

// Change describes one committed mutation. Listeners receive copies, so
// holding on to a Change never aliases store state.
type Change struct {
	Kind ChangeKind

	// Node is the post-update node, or the removed node for NodeDeleted
	Node  domain.Node
	Patch domain.NodePatch

	Connection domain.Connection

	// Cascade lists the connections removed along with a node, in the
	// order they were stored
	Cascade []domain.Connection

	Elements *domain.GameElements
	Snapshot *domain.Snapshot
}

// Listener is notified after each committed mutation
type Listener interface {
	GraphChanged(Change)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Change)

// GraphChanged calls f(c)
func (f ListenerFunc) GraphChanged(c Change) {
	f(c)
}

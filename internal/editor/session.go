// Package editor ties the graph store, the canvas controllers and the
// persistence gateway into one editing session.
//
// A Session is the owned application state of the editor. Front ends feed
// it pointer events in screen coordinates and toolbar commands, and read
// the result back through Scene.
package editor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"dialoguetree/internal/canvas"
	"dialoguetree/internal/domain"
	"dialoguetree/internal/graph"
	"dialoguetree/internal/persistence"
)

// ErrNoGateway is returned by persistence commands on a session without one
var ErrNoGateway = errors.New("editor: no persistence gateway")

// Session is one editing session
type Session struct {
	mu sync.Mutex

	store     *graph.Store
	gateway   *persistence.Gateway
	view      *canvas.Viewport
	drag      *canvas.DragController
	connector *canvas.ConnectionBuilder
	logger    *zap.Logger

	selected int
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session over store. gateway may be nil for a
// purely local session.
func NewSession(store *graph.Store, gateway *persistence.Gateway, opts ...Option) *Session {
	view := canvas.NewViewport()
	s := &Session{
		store:     store,
		gateway:   gateway,
		view:      view,
		drag:      canvas.NewDragController(store, view),
		connector: canvas.NewConnectionBuilder(store, view),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying graph
func (s *Session) Store() *graph.Store {
	return s.store
}

// AddNode creates a node. A nil pos puts it at the default spot.
func (s *Session) AddNode(kind domain.NodeKind, pos *domain.Position) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.CreateNode(kind, pos)
	if err != nil {
		return domain.Node{}, err
	}
	s.logger.Debug("node added", zap.Int("node_id", n.ID), zap.String("kind", string(n.Kind)))
	return n, nil
}

// EditNode applies a partial update to a node
func (s *Session) EditNode(id int, patch domain.NodePatch) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdateNode(id, patch)
}

// DeleteNode removes a node with its connections and drops any gesture
// or selection that referred to it
func (s *Session) DeleteNode(id int) ([]domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteNodeLocked(id)
}

func (s *Session) deleteNodeLocked(id int) ([]domain.Connection, error) {
	removed, err := s.store.DeleteNode(id)
	if err != nil {
		return nil, err
	}
	if s.drag.NodeID() == id {
		s.drag.End()
	}
	if pendingID, _, ok := s.connector.Pending(); ok && pendingID == id {
		s.connector.Cancel()
	}
	if s.selected == id {
		s.selected = 0
	}
	s.logger.Debug("node deleted", zap.Int("node_id", id), zap.Int("connections", len(removed)))
	return removed, nil
}

// DeleteConnection removes one connection
func (s *Session) DeleteConnection(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteConnection(id)
}

// AddElement registers a game element name
func (s *Session) AddElement(kind domain.ElementKind, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AddElement(kind, name)
}

// RemoveElement unregisters a game element name. Nodes that refer to it
// keep the reference.
func (s *Session) RemoveElement(kind domain.ElementKind, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemoveElement(kind, name)
}

// Select marks a node as the one being edited; 0 clears the selection
func (s *Session) Select(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != 0 {
		if _, ok := s.store.Node(id); !ok {
			return domain.NotFoundf("select", "node %d not found", id)
		}
	}
	s.selected = id
	return nil
}

// Selected returns the node being edited, 0 if none
func (s *Session) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Interaction reports what a pointer press did
type Interaction struct {
	Hit canvas.Hit

	// Connection is set when the press landed on a port
	Connection *canvas.Result

	// Removed lists the connections cascaded by the delete button
	Removed []domain.Connection
}

// PointerDown handles a press at the screen point p. Ports drive the
// connection protocol, a body starts a drag, the header buttons select or
// delete the node, and empty canvas cancels any pending connection and
// starts a pan.
func (s *Session) PointerDown(p domain.Position) (Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hit := canvas.HitTest(s.store.Nodes(), s.view.ScreenToWorld(p))
	in := Interaction{Hit: hit}

	switch hit.Target {
	case canvas.TargetPort:
		res := s.connector.Activate(hit.NodeID, hit.Port)
		in.Connection = &res
		if res.Outcome == canvas.OutcomeConnected {
			s.logger.Debug("connection created",
				zap.Int("connection_id", res.Connection.ID),
				zap.Int("from", res.Connection.From),
				zap.Int("to", res.Connection.To),
			)
		}
		return in, res.Err

	case canvas.TargetBody:
		return in, s.drag.Begin(hit.NodeID, p)

	case canvas.TargetEditButton:
		s.selected = hit.NodeID
		return in, nil

	case canvas.TargetDeleteButton:
		removed, err := s.deleteNodeLocked(hit.NodeID)
		in.Removed = removed
		return in, err
	}

	s.connector.Cancel()
	s.view.BeginPan(p)
	return in, nil
}

// PointerMove continues the active gesture and updates the connection
// preview
func (s *Session) PointerMove(p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connector.PointerMove(p)
	if s.drag.Active() {
		_, err := s.drag.Move(p)
		return err
	}
	s.view.MovePan(p)
	return nil
}

// PointerUp ends any drag or pan
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.End()
	s.view.EndPan()
}

// ActivatePort feeds a port activation to the connection protocol without
// going through hit testing
func (s *Session) ActivatePort(nodeID int, port domain.PortKind) canvas.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connector.Activate(nodeID, port)
}

// CancelConnection abandons a pending connection
func (s *Session) CancelConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connector.Cancel()
}

// ZoomIn zooms in one step
func (s *Session) ZoomIn() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ZoomIn()
	return s.view.Zoom()
}

// ZoomOut zooms out one step
func (s *Session) ZoomOut() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ZoomOut()
	return s.view.Zoom()
}

// ResetView restores zoom 1 and no pan
func (s *Session) ResetView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ResetView()
}

// ScreenToWorld maps a screen point under the current view
func (s *Session) ScreenToWorld(p domain.Position) domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.ScreenToWorld(p)
}

// Export writes the graph as json or yaml
func (s *Session) Export(w io.Writer, format string) error {
	if s.gateway == nil {
		return ErrNoGateway
	}
	return s.gateway.Export(w, format)
}

// Import replaces the graph with a document. On success every gesture,
// the pending connection and the selection are dropped.
func (s *Session) Import(r io.Reader, format string) error {
	if s.gateway == nil {
		return ErrNoGateway
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gateway.Import(r, format); err != nil {
		return err
	}
	s.resetInteraction()
	return nil
}

// SaveLocal writes a recovery snapshot to the local slot
func (s *Session) SaveLocal(ctx context.Context) (time.Time, error) {
	if s.gateway == nil {
		return time.Time{}, ErrNoGateway
	}
	return s.gateway.SaveLocalSnapshot(ctx)
}

// LocalSavedAt reports when the recovery snapshot was saved
func (s *Session) LocalSavedAt(ctx context.Context) (time.Time, error) {
	if s.gateway == nil {
		return time.Time{}, ErrNoGateway
	}
	return s.gateway.LocalSnapshotSavedAt(ctx)
}

// ClearLocal discards the recovery snapshot
func (s *Session) ClearLocal(ctx context.Context) error {
	if s.gateway == nil {
		return ErrNoGateway
	}
	return s.gateway.ClearLocalSnapshot(ctx)
}

// LoadLocal restores the recovery snapshot
func (s *Session) LoadLocal(ctx context.Context) (*domain.Snapshot, error) {
	if s.gateway == nil {
		return nil, ErrNoGateway
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.gateway.LoadLocalSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.resetInteraction()
	return doc, nil
}

func (s *Session) resetInteraction() {
	s.drag.End()
	s.view.EndPan()
	s.connector.Cancel()
	s.selected = 0
}

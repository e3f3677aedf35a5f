// Package graph holds the in-memory dialogue graph for one editing session.
//
// Store owns the nodes, connections and game element registries and is the
// only place they are mutated. Every mutation either commits fully or
// returns an error and leaves the store untouched, so a connection never
// references a node that is gone, not even between two calls.
package graph

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"dialoguetree/internal/domain"
)

// Store is the authoritative graph for an editing session
type Store struct {
	// writeMu is held across a mutation and its notification, so
	// listeners see changes in commit order
	writeMu sync.Mutex

	mu        sync.RWMutex
	nodes     []domain.Node
	conns     []domain.Connection
	elements  *domain.GameElements
	listeners []Listener
	logger    *zap.Logger

	// connFloor is the highest connection id Hydrate skipped. The remote
	// store may still hold it, so new ids stay above it.
	connFloor int
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		nodes:    make([]domain.Node, 0),
		conns:    make([]domain.Connection, 0),
		elements: domain.NewGameElements(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener. Listeners run synchronously on the
// mutating goroutine after the store lock is released, one mutation at a
// time and in commit order. A listener may read the store but must not
// mutate it.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) emit(c Change) {
	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l.GraphChanged(c)
	}
}

// Node returns a copy of the node with the given id
func (s *Store) Node(id int) (domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.nodeIndex(id)
	if i < 0 {
		return domain.Node{}, false
	}
	return s.nodes[i].Clone(), true
}

// Nodes returns copies of all nodes in creation order
func (s *Store) Nodes() []domain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Connections returns all connections in creation order
func (s *Store) Connections() []domain.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.conns)
}

// ConnectionsOf returns every connection with nodeID at either end
func (s *Store) ConnectionsOf(nodeID int) []domain.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Connection
	for _, c := range s.conns {
		if c.Touches(nodeID) {
			out = append(out, c)
		}
	}
	return out
}

// Elements returns a copy of the game element registries
func (s *Store) Elements() *domain.GameElements {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elements.Clone()
}

// NodeCounter returns the highest node id in the store, 0 when empty.
// The next created node gets NodeCounter()+1.
func (s *Store) NodeCounter() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.MaxNodeID(s.nodes)
}

// CreateNode adds a node of the given kind. A nil position places the
// node at domain.DefaultNodePosition.
func (s *Store) CreateNode(kind domain.NodeKind, pos *domain.Position) (domain.Node, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !kind.Valid() {
		return domain.Node{}, domain.Errorf(domain.KindValidation, "create node", "unknown node type %q", kind)
	}
	at := domain.DefaultNodePosition
	if pos != nil {
		at = *pos
	}

	s.mu.Lock()
	node := domain.NewNode(domain.MaxNodeID(s.nodes)+1, kind, at)
	s.nodes = append(s.nodes, node)
	s.mu.Unlock()

	s.logger.Debug("node created", zap.Int("node_id", node.ID), zap.String("kind", string(kind)))
	s.emit(Change{Kind: NodeCreated, Node: node.Clone()})
	return node.Clone(), nil
}

// UpdateNode merges patch into the node
func (s *Store) UpdateNode(id int, patch domain.NodePatch) (domain.Node, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if patch.Kind != nil && !patch.Kind.Valid() {
		return domain.Node{}, domain.Errorf(domain.KindValidation, "update node", "unknown node type %q", *patch.Kind)
	}

	s.mu.Lock()
	i := s.nodeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Node{}, domain.NotFoundf("update node", "node %d not found", id)
	}
	patch.Apply(&s.nodes[i])
	node := s.nodes[i].Clone()
	s.mu.Unlock()

	s.emit(Change{Kind: NodeUpdated, Node: node.Clone(), Patch: patch})
	return node, nil
}

// DeleteNode removes the node and every connection touching it in one
// step. The removed connections are returned in storage order.
func (s *Store) DeleteNode(id int) ([]domain.Connection, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	i := s.nodeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, domain.NotFoundf("delete node", "node %d not found", id)
	}
	removed := s.nodes[i]
	s.nodes = slices.Delete(s.nodes, i, i+1)

	var cascade []domain.Connection
	kept := s.conns[:0]
	for _, c := range s.conns {
		if c.Touches(id) {
			cascade = append(cascade, c)
			continue
		}
		kept = append(kept, c)
	}
	s.conns = kept
	s.mu.Unlock()

	s.logger.Debug("node deleted",
		zap.Int("node_id", id),
		zap.Int("cascaded_connections", len(cascade)),
	)
	s.emit(Change{Kind: NodeDeleted, Node: removed, Cascade: slices.Clone(cascade)})
	return cascade, nil
}

// CreateConnection links from's output to to's input. Parallel
// connections between the same pair are allowed.
func (s *Store) CreateConnection(from, to int) (domain.Connection, error) {
	const op = "create connection"
	if from == to {
		return domain.Connection{}, domain.Errorf(domain.KindInvalidEdge, op, "node %d cannot connect to itself", from)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.nodeIndex(from) < 0 {
		s.mu.Unlock()
		return domain.Connection{}, domain.NotFoundf(op, "node %d not found", from)
	}
	if s.nodeIndex(to) < 0 {
		s.mu.Unlock()
		return domain.Connection{}, domain.NotFoundf(op, "node %d not found", to)
	}
	conn := domain.Connection{ID: max(domain.MaxConnectionID(s.conns), s.connFloor) + 1, From: from, To: to}
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	s.logger.Debug("connection created",
		zap.Int("connection_id", conn.ID),
		zap.Int("from", from),
		zap.Int("to", to),
	)
	s.emit(Change{Kind: ConnectionCreated, Connection: conn})
	return conn, nil
}

// DeleteConnection removes a single connection
func (s *Store) DeleteConnection(id int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	i := slices.IndexFunc(s.conns, func(c domain.Connection) bool { return c.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return domain.NotFoundf("delete connection", "connection %d not found", id)
	}
	conn := s.conns[i]
	s.conns = slices.Delete(s.conns, i, i+1)
	s.mu.Unlock()

	s.emit(Change{Kind: ConnectionDeleted, Connection: conn})
	return nil
}

// AddElement registers a game element name. Adding an existing name is a
// no-op and reports false.
func (s *Store) AddElement(kind domain.ElementKind, name string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	added, err := s.elements.Add(kind, name)
	elements := s.elements.Clone()
	s.mu.Unlock()

	if err != nil || !added {
		return false, err
	}
	s.emit(Change{Kind: ElementsChanged, Elements: elements})
	return true, nil
}

// RemoveElement drops a game element name. Nodes that reference it keep
// the reference.
func (s *Store) RemoveElement(kind domain.ElementKind, name string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	removed, err := s.elements.Remove(kind, name)
	elements := s.elements.Clone()
	s.mu.Unlock()

	if err != nil || !removed {
		return false, err
	}
	s.emit(Change{Kind: ElementsChanged, Elements: elements})
	return true, nil
}

// Snapshot returns a copy of the whole graph as a portable document
func (s *Store) Snapshot() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() *domain.Snapshot {
	doc := domain.NewSnapshot()
	for _, n := range s.nodes {
		doc.AddNode(n.Clone())
	}
	doc.Connections = append(doc.Connections, s.conns...)
	doc.GameElements = s.elements.Clone()
	return doc
}

// Replace swaps the whole graph for doc and notifies listeners. Absent
// collections become empty. An inconsistent document is rejected with a
// ParseFailure and the store is left as it was.
func (s *Store) Replace(doc *domain.Snapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	installed, err := s.install(doc, 0)
	if err != nil {
		return err
	}
	s.emit(Change{Kind: Replaced, Snapshot: installed})
	return nil
}

// Hydrate is Replace without notifying listeners. It is used when the
// document came from the remote store in the first place. The remote store
// does not cascade node deletes, so connections that no longer join two
// nodes are left out instead of failing the load. They are returned.
func (s *Store) Hydrate(doc *domain.Snapshot) ([]domain.Connection, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if doc == nil {
		doc = domain.NewSnapshot()
	}
	pruned := *doc
	pruned.Connections = slices.Clone(doc.Connections)
	dropped := pruned.PruneConnections()

	if _, err := s.install(&pruned, domain.MaxConnectionID(dropped)); err != nil {
		return nil, err
	}
	for _, c := range dropped {
		s.logger.Warn("skipped dangling connection",
			zap.Int("connection_id", c.ID),
			zap.Int("from", c.From),
			zap.Int("to", c.To),
		)
	}
	return dropped, nil
}

func (s *Store) install(doc *domain.Snapshot, connFloor int) (*domain.Snapshot, error) {
	if doc == nil {
		doc = domain.NewSnapshot()
	}
	next := &domain.Snapshot{
		Connections:  slices.Clone(doc.Connections),
		GameElements: doc.GameElements.Clone(),
	}
	for _, n := range doc.Nodes {
		next.AddNode(n.Clone())
	}
	next.Normalize()
	if err := next.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.nodes = next.Nodes
	s.conns = next.Connections
	s.elements = next.GameElements
	s.connFloor = connFloor
	installed := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("graph replaced",
		zap.Int("nodes", len(installed.Nodes)),
		zap.Int("connections", len(installed.Connections)),
		zap.Int("node_counter", domain.MaxNodeID(installed.Nodes)),
	)
	return installed, nil
}

func (s *Store) nodeIndex(id int) int {
	return slices.IndexFunc(s.nodes, func(n domain.Node) bool { return n.ID == id })
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dialoguetree/internal/domain"
	"dialoguetree/internal/repository"
)

// Observer is told how big the store is after each write
type Observer interface {
	ObserveStore(nodes, connections int)
	ObserveEvent(kind string)
}

// StoreService provides business logic for the dialogue store
type StoreService struct {
	repo     repository.Repository
	eventBus *EventBus
	logger   *zap.Logger
	observer Observer
}

// NewStoreService creates a new store service
func NewStoreService(repo repository.Repository, eventBus *EventBus, logger *zap.Logger) *StoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// SetObserver attaches store size and event reporting
func (s *StoreService) SetObserver(o Observer) {
	s.observer = o
}

func (s *StoreService) publish(ctx context.Context, e Event) {
	s.eventBus.Publish(e)
	if s.observer == nil {
		return
	}
	s.observer.ObserveEvent(string(e.Type))

	nodes, err := s.repo.ListNodes(ctx)
	if err != nil {
		return
	}
	conns, err := s.repo.ListConnections(ctx)
	if err != nil {
		return
	}
	s.observer.ObserveStore(len(nodes), len(conns))
}

// ListNodes returns all nodes
func (s *StoreService) ListNodes(ctx context.Context) ([]domain.Node, error) {
	return s.repo.ListNodes(ctx)
}

// GetNode retrieves a single node by ID
func (s *StoreService) GetNode(ctx context.Context, id int) (*domain.Node, error) {
	node, err := s.repo.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, domain.NotFoundf("get node", "node %d not found", id)
	}
	return node, nil
}

// CreateNode stores a node under the id the client chose
func (s *StoreService) CreateNode(ctx context.Context, node *domain.Node) error {
	const op = "create node"
	if err := validateStruct(op, node); err != nil {
		return err
	}
	node.Normalize()

	if err := s.repo.CreateNode(ctx, node); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Errorf(domain.KindValidation, op, "node %d already exists", node.ID)
		}
		return err
	}

	s.publish(ctx, Event{
		Type:    EventNodeCreated,
		Payload: map[string]interface{}{"node_id": node.ID, "type": node.Kind},
	})
	return nil
}

// UpdateNode merges patch into an existing node
func (s *StoreService) UpdateNode(ctx context.Context, id int, patch domain.NodePatch) (*domain.Node, error) {
	const op = "update node"

	node, err := s.repo.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, domain.NotFoundf(op, "node %d not found", id)
	}

	patch.Apply(node)
	if err := validateStruct(op, node); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateNode(ctx, node); err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Type:    EventNodeUpdated,
		Payload: map[string]interface{}{"node_id": id, "position_only": patch.IsPositionOnly()},
	})
	return node, nil
}

// DeleteNode removes a node. Connections are the caller's business.
func (s *StoreService) DeleteNode(ctx context.Context, id int) error {
	deleted, err := s.repo.DeleteNode(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NotFoundf("delete node", "node %d not found", id)
	}

	s.publish(ctx, Event{
		Type:    EventNodeDeleted,
		Payload: map[string]int{"node_id": id},
	})
	return nil
}

// ListConnections returns all connections
func (s *StoreService) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	return s.repo.ListConnections(ctx)
}

// CreateConnection stores a connection between two existing nodes
func (s *StoreService) CreateConnection(ctx context.Context, conn *domain.Connection) error {
	const op = "create connection"
	if err := validateStruct(op, conn); err != nil {
		return err
	}
	if err := conn.Validate(); err != nil {
		return err
	}
	for _, id := range []int{conn.From, conn.To} {
		node, err := s.repo.GetNode(ctx, id)
		if err != nil {
			return err
		}
		if node == nil {
			return domain.Errorf(domain.KindInvalidEdge, op, "node %d does not exist", id)
		}
	}

	if err := s.repo.CreateConnection(ctx, conn); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Errorf(domain.KindValidation, op, "connection %d already exists", conn.ID)
		}
		return err
	}

	s.publish(ctx, Event{
		Type:    EventConnectionCreated,
		Payload: conn,
	})
	return nil
}

// DeleteConnection removes a connection
func (s *StoreService) DeleteConnection(ctx context.Context, id int) error {
	deleted, err := s.repo.DeleteConnection(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NotFoundf("delete connection", "connection %d not found", id)
	}

	s.publish(ctx, Event{
		Type:    EventConnectionDeleted,
		Payload: map[string]int{"connection_id": id},
	})
	return nil
}

// ListGameElements returns the registry rows
func (s *StoreService) ListGameElements(ctx context.Context) ([]domain.ElementsRecord, error) {
	return s.repo.ListGameElements(ctx)
}

// CreateGameElements creates a registry row
func (s *StoreService) CreateGameElements(ctx context.Context, elements domain.GameElements) (*domain.ElementsRecord, error) {
	if err := validateStruct("create game elements", &elements); err != nil {
		return nil, err
	}

	rec := &domain.ElementsRecord{GameElements: elements}
	rec.Normalize()
	if err := s.repo.CreateGameElements(ctx, rec); err != nil {
		return nil, err
	}

	s.publish(ctx, Event{Type: EventElementsChanged, Payload: rec})
	return rec, nil
}

// UpdateGameElements replaces a registry row
func (s *StoreService) UpdateGameElements(ctx context.Context, id int, elements domain.GameElements) (*domain.ElementsRecord, error) {
	const op = "update game elements"
	if err := validateStruct(op, &elements); err != nil {
		return nil, err
	}

	rec := &domain.ElementsRecord{ID: id, GameElements: elements}
	rec.Normalize()
	ok, err := s.repo.UpdateGameElements(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotFoundf(op, "game elements %d not found", id)
	}

	s.publish(ctx, Event{Type: EventElementsChanged, Payload: rec})
	return rec, nil
}

// Export returns the whole store as one document
func (s *StoreService) Export(ctx context.Context) (*domain.Snapshot, error) {
	return s.repo.Export(ctx)
}

// Import replaces the whole store. An inconsistent document is a
// ParseFailure and leaves the store untouched.
func (s *StoreService) Import(ctx context.Context, doc *domain.Snapshot) error {
	if doc == nil {
		return domain.Errorf(domain.KindParse, "import", "no document")
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := s.repo.Import(ctx, doc); err != nil {
		return err
	}

	s.logger.Info("store replaced by import",
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("connections", len(doc.Connections)),
	)
	s.publish(ctx, Event{
		Type:    EventStoreImported,
		Payload: map[string]int{"nodes": len(doc.Nodes), "connections": len(doc.Connections)},
	})
	return nil
}

// importTimer is implemented by repositories that track wholesale imports
type importTimer interface {
	LastImport(ctx context.Context) (time.Time, bool, error)
}

// Status summarizes the store for health checks
type Status struct {
	Nodes       int        `json:"nodes"`
	Connections int        `json:"connections"`
	LastImport  *time.Time `json:"last_import,omitempty"`
}

// Status reports store size and the last import time
func (s *StoreService) Status(ctx context.Context) (*Status, error) {
	nodes, err := s.repo.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	conns, err := s.repo.ListConnections(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Nodes: len(nodes), Connections: len(conns)}
	if t, ok := s.repo.(importTimer); ok {
		at, found, err := t.LastImport(ctx)
		if err != nil {
			return nil, err
		}
		if found {
			st.LastImport = &at
		}
	}
	return st, nil
}

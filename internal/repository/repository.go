package repository

import (
	"context"
	"errors"

	"dialoguetree/internal/domain"
)

// ErrConflict means a row with the same id already exists
var ErrConflict = errors.New("repository: id already exists")

// Repository defines data access for the dialogue store
type Repository interface {
	// Nodes. Get returns nil when the node does not exist.
	ListNodes(ctx context.Context) ([]domain.Node, error)
	GetNode(ctx context.Context, id int) (*domain.Node, error)
	CreateNode(ctx context.Context, node *domain.Node) error
	UpdateNode(ctx context.Context, node *domain.Node) error
	DeleteNode(ctx context.Context, id int) (bool, error)

	// Connections. A zero id on create is assigned by the store.
	ListConnections(ctx context.Context) ([]domain.Connection, error)
	GetConnection(ctx context.Context, id int) (*domain.Connection, error)
	CreateConnection(ctx context.Context, conn *domain.Connection) error
	DeleteConnection(ctx context.Context, id int) (bool, error)

	// Game element registry rows
	ListGameElements(ctx context.Context) ([]domain.ElementsRecord, error)
	CreateGameElements(ctx context.Context, rec *domain.ElementsRecord) error
	UpdateGameElements(ctx context.Context, rec *domain.ElementsRecord) (bool, error)

	// Whole-document operations
	Export(ctx context.Context) (*domain.Snapshot, error)
	Import(ctx context.Context, doc *domain.Snapshot) error

	Close() error
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dialoguetree/internal/domain"
	"dialoguetree/internal/repository"
)

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func TestNewLogsOpenOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	repo, err := New(":memory:", zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	opened := logs.FilterMessage("database opened").All()
	require.Len(t, opened, 1)
	assert.Equal(t, ":memory:", opened[0].ContextMap()["path"])
}

func sampleNode(id int) domain.Node {
	n := domain.NewNode(id, domain.NodeKindPlayer, domain.Pt(float64(id*10), 20))
	n.Text = "Where to?"
	n.Choices = []string{"North", "South"}
	n.AssociatedNPC = "Bob"
	n.Conditions = domain.Conditions{RequiredItems: []string{"Key"}, RequiredLocation: "Town", Custom: "gold > 3"}
	n.Consequences = domain.Consequences{GiveItems: []string{"Map"}, RemoveItems: []string{}, ChangeLocation: "Forest"}
	return n
}

// ============================================================================
// Row Helper Tests
// ============================================================================

func TestNodeRowRoundTrip(t *testing.T) {
	n := sampleNode(3)
	args, err := nodeInsertArgs(&n)
	require.NoError(t, err)
	require.Len(t, args, 6)

	row := nodeRow{
		ID:       args[0].(int),
		Type:     args[1].(string),
		X:        args[2].(float64),
		Y:        args[3].(float64),
		Text:     args[4].(string),
		DataJSON: sql.NullString{String: args[5].(string), Valid: true},
	}
	got, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestNodeRowWithoutData(t *testing.T) {
	row := nodeRow{ID: 1, Type: "npc", Text: "hi"}
	got, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Choices)
	assert.Equal(t, []string{}, got.Conditions.RequiredItems)
}

func TestNodeRowBadJSON(t *testing.T) {
	row := nodeRow{ID: 1, DataJSON: sql.NullString{String: "{", Valid: true}}
	_, err := row.toDomain()
	assert.Error(t, err)
}

// ============================================================================
// Node Tests
// ============================================================================

func TestNodeCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n := sampleNode(1)
	require.NoError(t, repo.CreateNode(ctx, &n))

	got, err := repo.GetNode(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n, *got)

	n.Text = "Changed"
	n.Position = domain.Pt(5, 6)
	require.NoError(t, repo.UpdateNode(ctx, &n))
	got, err = repo.GetNode(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Text)
	assert.Equal(t, domain.Pt(5, 6), got.Position)

	deleted, err := repo.DeleteNode(ctx, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = repo.GetNode(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = repo.DeleteNode(ctx, 1)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCreateNodeDuplicateID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n := sampleNode(1)
	require.NoError(t, repo.CreateNode(ctx, &n))
	err := repo.CreateNode(ctx, &n)
	assert.True(t, errors.Is(err, repository.ErrConflict), "got %v", err)
}

func TestListNodesOrdered(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []int{3, 1, 2} {
		n := sampleNode(id)
		require.NoError(t, repo.CreateNode(ctx, &n))
	}

	nodes, err := repo.ListNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{nodes[0].ID, nodes[1].ID, nodes[2].ID})
}

func TestListNodesEmpty(t *testing.T) {
	repo := newTestRepo(t)
	nodes, err := repo.ListNodes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}

// ============================================================================
// Connection Tests
// ============================================================================

func TestConnectionIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := domain.Connection{From: 1, To: 2}
	require.NoError(t, repo.CreateConnection(ctx, &a))
	assert.Equal(t, 1, a.ID)

	b := domain.Connection{ID: 5, From: 2, To: 3}
	require.NoError(t, repo.CreateConnection(ctx, &b))

	c := domain.Connection{From: 1, To: 3}
	require.NoError(t, repo.CreateConnection(ctx, &c))
	assert.Equal(t, 6, c.ID)

	dup := domain.Connection{ID: 5, From: 1, To: 2}
	assert.ErrorIs(t, repo.CreateConnection(ctx, &dup), repository.ErrConflict)

	conns, err := repo.ListConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Connection{a, b, c}, conns)
}

func TestDeleteNodeKeepsConnections(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []int{1, 2} {
		n := sampleNode(id)
		require.NoError(t, repo.CreateNode(ctx, &n))
	}
	conn := domain.Connection{From: 1, To: 2}
	require.NoError(t, repo.CreateConnection(ctx, &conn))

	_, err := repo.DeleteNode(ctx, 1)
	require.NoError(t, err)

	got, err := repo.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conn, *got)

	deleted, err := repo.DeleteConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = repo.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// ============================================================================
// Game Elements Tests
// ============================================================================

func TestGameElements(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	records, err := repo.ListGameElements(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	rec := domain.ElementsRecord{GameElements: domain.GameElements{NPCs: []string{"Bob", "Bob"}}}
	require.NoError(t, repo.CreateGameElements(ctx, &rec))
	assert.Equal(t, 1, rec.ID)

	rec.Items = []string{"Key"}
	ok, err := repo.UpdateGameElements(ctx, &rec)
	require.NoError(t, err)
	assert.True(t, ok)

	records, err = repo.ListGameElements(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Bob"}, records[0].NPCs)
	assert.Equal(t, []string{"Key"}, records[0].Items)
	assert.Equal(t, []string{}, records[0].Locations)

	missing := domain.ElementsRecord{ID: 42}
	ok, err = repo.UpdateGameElements(ctx, &missing)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================================================
// Import/Export Tests
// ============================================================================

func TestImportReplacesEverything(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := sampleNode(9)
	require.NoError(t, repo.CreateNode(ctx, &old))
	oldConn := domain.Connection{ID: 3, From: 9, To: 9}
	require.NoError(t, repo.CreateConnection(ctx, &oldConn))

	doc := domain.NewSnapshot()
	doc.AddNode(sampleNode(1))
	doc.AddNode(domain.NewNode(2, domain.NodeKindNPC, domain.Pt(0, 0)))
	doc.AddConnection(domain.Connection{ID: 1, From: 1, To: 2})
	doc.GameElements = &domain.GameElements{Locations: []string{"Town"}}
	require.NoError(t, repo.Import(ctx, doc))

	got, err := repo.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.Nodes, got.Nodes)
	assert.Equal(t, doc.Connections, got.Connections)
	assert.Equal(t, []string{"Town"}, got.GameElements.Locations)
	assert.Equal(t, []string{}, got.GameElements.NPCs)

	at, ok, err := repo.LastImport(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, at.IsZero())
}

func TestImportRollsBackOnFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	keep := sampleNode(7)
	require.NoError(t, repo.CreateNode(ctx, &keep))

	doc := domain.NewSnapshot()
	doc.AddNode(sampleNode(1))
	doc.AddNode(sampleNode(1))
	require.Error(t, repo.Import(ctx, doc))

	nodes, err := repo.ListNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 7, nodes[0].ID)

	_, ok, err := repo.LastImport(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportEmpty(t *testing.T) {
	repo := newTestRepo(t)
	doc, err := repo.Export(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.Nodes)
	assert.Empty(t, doc.Connections)
	require.NotNil(t, doc.GameElements)
	assert.Empty(t, doc.GameElements.NPCs)
}

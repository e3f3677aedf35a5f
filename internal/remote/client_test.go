package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialoguetree/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, time.Second, BreakerConfig{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateNodeSendsBody(t *testing.T) {
	var got domain.Node
	var requestID string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/nodes", r.URL.Path)
		requestID = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, got)
	}))

	node := domain.NewNode(4, domain.NodeKindPlayer, domain.Pt(1, 2))
	out, err := c.CreateNode(context.Background(), node)
	require.NoError(t, err)

	assert.Equal(t, node, got)
	assert.Equal(t, node, out)
	assert.NotEmpty(t, requestID)
}

func TestUpdateAndDeletePaths(t *testing.T) {
	var calls []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			var patch domain.NodePatch
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			require.NotNil(t, patch.X)
			writeJSON(w, http.StatusOK, domain.NewNode(3, domain.NodeKindNPC, domain.Pt(*patch.X, *patch.Y)))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	ctx := context.Background()

	n, err := c.UpdateNode(ctx, 3, domain.MovePatch(domain.Pt(7, 8)))
	require.NoError(t, err)
	assert.Equal(t, domain.Pt(7, 8), n.Position)

	require.NoError(t, c.DeleteConnection(ctx, 9))
	require.NoError(t, c.DeleteNode(ctx, 3))

	assert.Equal(t, []string{
		"PUT /api/nodes/3",
		"DELETE /api/connections/9",
		"DELETE /api/nodes/3",
	}, calls)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   *domain.Error
	}{
		{"not found", http.StatusNotFound, map[string]string{"error": "Not found"}, domain.ErrNotFound},
		{"validation", http.StatusBadRequest, map[string]string{"error": "bad"}, domain.ErrValidation},
		{"server names invalid edge", http.StatusBadRequest, map[string]string{"error": "loop", "kind": "invalid_edge"}, domain.ErrInvalidEdge},
		{"unprocessable", http.StatusUnprocessableEntity, nil, domain.ErrValidation},
		{"server failure", http.StatusInternalServerError, map[string]string{"error": "boom"}, domain.ErrNetwork},
		{"bad gateway", http.StatusBadGateway, nil, domain.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			_, err := c.ListNodes(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, BreakerConfig{})
	err := c.DeleteNode(context.Background(), 1)
	assert.True(t, errors.Is(err, domain.ErrNetwork), "got %v", err)
}

func TestBreakerOpensOnServerFailures(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, BreakerConfig{MinRequests: 2, FailureThreshold: 0.5, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.ListNodes(ctx)
		assert.True(t, errors.Is(err, domain.ErrNetwork))
	}

	_, err := c.ListNodes(ctx)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.Equal(t, 2, hits, "open breaker short-circuits the request")
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, BreakerConfig{MinRequests: 1, FailureThreshold: 0.1})
	for i := 0; i < 5; i++ {
		err := c.DeleteNode(context.Background(), i)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	}
	assert.Equal(t, 5, hits)
}

func TestGameElements(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, []domain.ElementsRecord{{ID: 1, GameElements: domain.GameElements{NPCs: []string{"Bob"}}}})
		case http.MethodPut:
			assert.Equal(t, "/api/gameElements/1", r.URL.Path)
			var g domain.GameElements
			require.NoError(t, json.NewDecoder(r.Body).Decode(&g))
			writeJSON(w, http.StatusOK, domain.ElementsRecord{ID: 1, GameElements: g})
		}
	}))
	ctx := context.Background()

	records, err := c.ListGameElements(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Bob"}, records[0].NPCs)

	rec, err := c.UpdateGameElements(ctx, 1, domain.GameElements{Items: []string{"Key"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Key"}, rec.Items)
}

func TestExportImport(t *testing.T) {
	var imported domain.Snapshot
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/export":
			w.Header().Set("Content-Disposition", "attachment; filename=dialogue-tree.json")
			writeJSON(w, http.StatusOK, map[string]any{
				"nodes":       []map[string]any{{"id": 1, "type": "npc", "text": "hi"}},
				"connections": nil,
			})
		case "/api/import":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&imported))
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		}
	}))
	ctx := context.Background()

	doc, err := c.Export(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.NotNil(t, doc.Connections)
	assert.NotNil(t, doc.GameElements)

	require.NoError(t, c.Import(ctx, doc))
	assert.Len(t, imported.Nodes, 1)
}

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialoguetree/internal/config"
	"dialoguetree/internal/domain"
	"dialoguetree/internal/handler"
	"dialoguetree/internal/repository/sqlite"
	"dialoguetree/internal/service"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

type harness struct {
	t    *testing.T
	url  string
	slot string
	svc  *service.StoreService
}

// newHarness runs a real store server and isolates the CLI from any
// config on the machine. wrap, if set, sits in front of the router.
func newHarness(t *testing.T, wrap func(http.Handler) http.Handler) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv(config.EnvRemoteURL, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Chdir(dir)

	repo, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	svc := service.NewStoreService(repo, service.NewEventBus(), nil)

	var h http.Handler = handler.NewRouter(handler.RouterConfig{Store: handler.NewStoreHandler(svc, nil)})
	if wrap != nil {
		h = wrap(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &harness{t: t, url: srv.URL, slot: filepath.Join(dir, "backup", "slot.db"), svc: svc}
}

func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--remote", h.url, "--slot", h.slot}, args...)
	err := execute(context.Background(), full, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(args...)
	require.NoError(h.t, err, errOut)
	return out
}

func (h *harness) remote() ([]domain.Node, []domain.Connection) {
	h.t.Helper()
	ctx := context.Background()
	nodes, err := h.svc.ListNodes(ctx)
	require.NoError(h.t, err)
	conns, err := h.svc.ListConnections(ctx)
	require.NoError(h.t, err)
	return nodes, conns
}

func TestAuthoringSession(t *testing.T) {
	h := newHarness(t, nil)

	out := h.mustRun("nodes", "add", "npc", "--x", "10", "--y", "20", "--text", "Halt! Who goes there?")
	assert.Contains(t, out, "node 1 added (npc at 10,20)")

	out = h.mustRun("nodes", "add", "player", "--choice", "A friend", "--choice", "Nobody")
	assert.Contains(t, out, "node 2 added (player at 50,50)")

	out = h.mustRun("connect", "1", "2")
	assert.Contains(t, out, "connection 1: 1 → 2")

	nodes, conns := h.remote()
	require.Len(t, nodes, 2)
	assert.Equal(t, "Halt! Who goes there?", nodes[0].Text)
	assert.Equal(t, []string{"A friend", "Nobody"}, nodes[1].Choices)
	assert.Equal(t, []domain.Connection{{ID: 1, From: 1, To: 2}}, conns)

	out = h.mustRun("nodes", "list")
	assert.Contains(t, out, "Halt! Who goes there?")
	assert.Contains(t, out, "player")

	h.mustRun("nodes", "edit", "2", "--text", "Who asks?", "--x", "400")
	nodes, _ = h.remote()
	assert.Equal(t, "Who asks?", nodes[1].Text)
	assert.Equal(t, domain.Pt(400, 50), nodes[1].Position)

	out = h.mustRun("nodes", "rm", "1")
	assert.Contains(t, out, "node 1 deleted")
	assert.Contains(t, out, "removed connection(s) 1")

	nodes, conns = h.remote()
	require.Len(t, nodes, 1)
	assert.Equal(t, 2, nodes[0].ID)
	assert.Empty(t, conns)
}

func TestNodeConditionsAndConsequences(t *testing.T) {
	h := newHarness(t, nil)

	h.mustRun("nodes", "add", "player",
		"--require-item", "Key", "--require-item", "Map",
		"--give-item", "Gold", "--condition", "night only")
	nodes, _ := h.remote()
	require.Len(t, nodes, 1)
	assert.Equal(t, []string{"Key", "Map"}, nodes[0].Conditions.RequiredItems)
	assert.Equal(t, "night only", nodes[0].Conditions.Custom)
	assert.Equal(t, []string{"Gold"}, nodes[0].Consequences.GiveItems)

	h.mustRun("nodes", "edit", "1", "--require-location", "Gate", "--remove-item", "Key", "--change-location", "Town")
	nodes, _ = h.remote()
	c, q := nodes[0].Conditions, nodes[0].Consequences
	assert.Equal(t, []string{"Key", "Map"}, c.RequiredItems, "untouched fields are kept")
	assert.Equal(t, "Gate", c.RequiredLocation)
	assert.Equal(t, "night only", c.Custom)
	assert.Equal(t, []string{"Gold"}, q.GiveItems)
	assert.Equal(t, []string{"Key"}, q.RemoveItems)
	assert.Equal(t, "Town", q.ChangeLocation)
}

func TestElements(t *testing.T) {
	h := newHarness(t, nil)

	assert.Contains(t, h.mustRun("elements", "add", "npc", "Guard"), `npcs "Guard" added`)
	assert.Contains(t, h.mustRun("elements", "add", "npcs", "Guard"), "already registered")
	h.mustRun("elements", "add", "location", "Gate")

	out := h.mustRun("elements", "list")
	assert.Contains(t, out, "Guard")
	assert.Contains(t, out, "Gate")

	records, err := h.svc.ListGameElements(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Guard"}, records[0].NPCs)
	assert.Equal(t, []string{"Gate"}, records[0].Locations)

	assert.Contains(t, h.mustRun("elements", "rm", "npcs", "Guard"), "removed")
	records, err = h.svc.ListGameElements(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records[0].NPCs)

	_, _, err = h.run("elements", "add", "weapons", "Sword")
	assert.ErrorContains(t, err, "unknown element kind")
}

func TestExportImport(t *testing.T) {
	h := newHarness(t, nil)
	h.mustRun("nodes", "add", "npc", "--text", "Hello")
	h.mustRun("nodes", "add", "player")
	h.mustRun("connect", "1", "2")

	out := h.mustRun("export", "-f", "yaml")
	assert.Contains(t, out, "nodes:")
	assert.Contains(t, out, "Hello")

	file := filepath.Join(t.TempDir(), "story.yaml")
	out = h.mustRun("export", "-o", file)
	assert.Contains(t, out, "exported 2 node(s), 1 connection(s)")

	h.mustRun("nodes", "rm", "2")
	_, conns := h.remote()
	require.Empty(t, conns)

	out = h.mustRun("import", file)
	assert.Contains(t, out, "imported 2 node(s), 1 connection(s)")

	nodes, conns := h.remote()
	assert.Len(t, nodes, 2)
	assert.Len(t, conns, 1)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nodes":[{"id":1,"type":"npc"}],"connections":[{"id":1,"from":1,"to":5}]}`), 0644))
	_, _, err := h.run("import", bad)
	assert.ErrorIs(t, err, domain.ErrParse)

	nodes, _ = h.remote()
	assert.Len(t, nodes, 2)
}

func TestBackupRestore(t *testing.T) {
	h := newHarness(t, nil)
	h.mustRun("nodes", "add", "npc")

	_, _, err := h.run("backup", "load")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Contains(t, h.mustRun("backup", "save"), "backup saved")

	h.mustRun("nodes", "add", "player")
	h.mustRun("nodes", "add", "dialogue")
	nodes, _ := h.remote()
	require.Len(t, nodes, 3)

	out := h.mustRun("backup", "load")
	assert.Contains(t, out, "restored 1 node(s)")

	nodes, _ = h.remote()
	require.Len(t, nodes, 1)
	assert.Equal(t, domain.NodeKindNPC, nodes[0].Kind)

	assert.Contains(t, h.mustRun("backup", "info"), "backup saved at")
	assert.Contains(t, h.mustRun("backup", "clear"), "backup cleared")
	assert.Contains(t, h.mustRun("backup", "info"), "No backup saved yet")
	_, _, err = h.run("backup", "load")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommandErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.mustRun("nodes", "add", "npc")

	tests := []struct {
		name string
		args []string
		is   error
		msg  string
	}{
		{"self connection", []string{"connect", "1", "1"}, domain.ErrInvalidEdge, ""},
		{"missing endpoint", []string{"connect", "1", "9"}, domain.ErrNotFound, ""},
		{"edit missing node", []string{"nodes", "edit", "9", "--text", "x"}, domain.ErrNotFound, ""},
		{"edit nothing", []string{"nodes", "edit", "1"}, nil, "nothing to change"},
		{"bad id", []string{"nodes", "rm", "abc"}, nil, "invalid id"},
		{"bad kind", []string{"nodes", "add", "robot"}, nil, "unknown node type"},
		{"missing connection", []string{"disconnect", "4"}, domain.ErrNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.run(tt.args...)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			if tt.msg != "" {
				assert.ErrorContains(t, err, tt.msg)
			}
		})
	}
}

func TestUnreachableStore(t *testing.T) {
	h := newHarness(t, nil)
	h.url = "http://127.0.0.1:1"

	_, _, err := h.run("--timeout", "200ms", "nodes", "list")
	assert.ErrorContains(t, err, "load graph")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestRefusedSyncIsReported(t *testing.T) {
	h := newHarness(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodDelete {
				http.Error(w, `{"error":"read only"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	h.mustRun("nodes", "add", "npc")

	out, errOut, err := h.run("nodes", "rm", "1")
	assert.Contains(t, out, "node 1 deleted")
	assert.Contains(t, errOut, "delete node")
	assert.ErrorContains(t, err, "kept locally")

	nodes, _ := h.remote()
	assert.Len(t, nodes, 1)
}

func TestDanglingStoredConnectionIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	h.mustRun("nodes", "add", "npc")
	h.mustRun("nodes", "add", "player")
	h.mustRun("connect", "1", "2")

	// the store does not cascade, so the connection outlives its node
	require.NoError(t, h.svc.DeleteNode(context.Background(), 1))
	_, conns := h.remote()
	require.Len(t, conns, 1)

	out, errOut, err := h.run("nodes", "list")
	require.NoError(t, err, errOut)
	assert.Contains(t, out, "player")
	assert.Contains(t, errOut, "load connection 1 skipped")

	out = h.mustRun("nodes", "add", "npc")
	assert.Contains(t, out, "node 3 added")

	file := filepath.Join(t.TempDir(), "clean.json")
	h.mustRun("export", "-o", file)
	h.mustRun("import", file)

	nodes, conns := h.remote()
	assert.Len(t, nodes, 2)
	assert.Empty(t, conns)

	_, errOut, err = h.run("nodes", "list")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "skipped")
}

func TestVerboseReportsSyncStats(t *testing.T) {
	h := newHarness(t, nil)

	_, errOut, err := h.run("-v", "nodes", "add", "npc", "--text", "Hi")
	require.NoError(t, err)
	assert.Contains(t, errOut, "sync: 2 submitted")
	assert.Contains(t, errOut, "0 failed")
}

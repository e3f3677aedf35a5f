// Package persistence moves the editor graph in and out of the process:
// whole-document export and import, the local recovery slot, and
// best-effort mirroring of every store mutation to the remote store.
//
// Remote writes are optimistic. The store is updated first, the matching
// remote call is queued, and a failure produces a Notice instead of a
// rollback. A single worker drains the queue in order, so a cascading node
// delete always removes its connections one by one before the node.
package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dialoguetree/internal/codec"
	"dialoguetree/internal/domain"
	"dialoguetree/internal/graph"
	"dialoguetree/internal/localslot"
)

// RemoteStore is the remote entity store. *remote.Client satisfies it.
type RemoteStore interface {
	ListNodes(ctx context.Context) ([]domain.Node, error)
	CreateNode(ctx context.Context, node domain.Node) (domain.Node, error)
	UpdateNode(ctx context.Context, id int, patch domain.NodePatch) (domain.Node, error)
	DeleteNode(ctx context.Context, id int) error

	ListConnections(ctx context.Context) ([]domain.Connection, error)
	CreateConnection(ctx context.Context, conn domain.Connection) (domain.Connection, error)
	DeleteConnection(ctx context.Context, id int) error

	ListGameElements(ctx context.Context) ([]domain.ElementsRecord, error)
	CreateGameElements(ctx context.Context, elements domain.GameElements) (domain.ElementsRecord, error)
	UpdateGameElements(ctx context.Context, id int, elements domain.GameElements) (domain.ElementsRecord, error)

	Import(ctx context.Context, doc *domain.Snapshot) error
}

// Slot is a local key-value store. *localslot.Store satisfies it.
type Slot interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	SavedAt(ctx context.Context, key string) (time.Time, error)
	Delete(ctx context.Context, key string) error
}

// Gateway connects a graph store to its persistence targets
type Gateway struct {
	store    *graph.Store
	remote   RemoteStore
	slot     Slot
	slotKey  string
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	queue *syncQueue

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}

	elementsMu sync.Mutex
	elementsID int
}

// Option configures a Gateway
type Option func(*Gateway)

// WithLogger sets the gateway logger
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithNotifier sets where sync failures are reported
func WithNotifier(n Notifier) Option {
	return func(g *Gateway) {
		g.notifier = n
	}
}

// WithSlotKey overrides the local slot key
func WithSlotKey(key string) Option {
	return func(g *Gateway) {
		g.slotKey = key
	}
}

// WithQueueSize bounds the number of pending remote changes
func WithQueueSize(n int) Option {
	return func(g *Gateway) {
		g.queue = newSyncQueue(n)
	}
}

// WithClock overrides the timestamp source for local snapshots
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// New creates a gateway and subscribes it to store. remote and slot may
// be nil; the matching operations then become unavailable.
func New(store *graph.Store, remote RemoteStore, slot Slot, opts ...Option) *Gateway {
	g := &Gateway{
		store:   store,
		remote:  remote,
		slot:    slot,
		slotKey: localslot.DefaultKey,
		logger:  zap.NewNop(),
		now:     time.Now,
		queue:   newSyncQueue(0),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.notifier == nil {
		g.notifier = logNotifier{logger: g.logger}
	}
	if remote != nil {
		store.Subscribe(g)
	}
	return g
}

// Start launches the sync worker. Changes queued before Start are kept.
func (g *Gateway) Start(ctx context.Context) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if g.done != nil {
		return ErrAlreadyStarted
	}
	ctx, g.cancel = context.WithCancel(ctx)
	g.done = make(chan struct{})

	go g.run(ctx, g.done)
	g.logger.Debug("sync worker started")
	return nil
}

// Stop halts the worker after the change in flight and drops the rest.
// Use Flush first to drain.
func (g *Gateway) Stop() {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if g.done == nil {
		return
	}
	g.cancel()
	<-g.done
	if abandoned := g.queue.close(); abandoned > 0 {
		g.logger.Warn("sync worker stopped with pending changes", zap.Int("abandoned", abandoned))
	}
}

// Flush waits until every change queued before the call has been pushed
func (g *Gateway) Flush(ctx context.Context) error {
	g.lifecycleMu.Lock()
	started := g.done != nil
	g.lifecycleMu.Unlock()
	if !started {
		return ErrNotStarted
	}

	done, err := g.queue.barrier()
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports sync queue counters
func (g *Gateway) Stats() QueueStats {
	return g.queue.snapshot()
}

// GraphChanged queues the remote counterpart of a store mutation. It never
// blocks; a full queue drops the change and reports it.
func (g *Gateway) GraphChanged(c graph.Change) {
	if err := g.queue.push(c); err != nil {
		g.notifier.Notify(Notice{
			Kind:   domain.KindNetwork,
			Op:     "queue " + string(c.Kind),
			Change: c.Kind,
			Err:    err,
		})
	}
}

func (g *Gateway) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		it, ok := g.queue.pop(ctx)
		if !ok {
			return
		}
		if it.barrier != nil {
			close(it.barrier)
			continue
		}

		start := time.Now()
		err := g.push(ctx, it.change)
		g.queue.record(err)
		g.logger.Debug("change synced",
			zap.String("change", string(it.change.Kind)),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("ok", err == nil),
		)
	}
}

// push performs the remote calls for one change and reports failures
func (g *Gateway) push(ctx context.Context, c graph.Change) error {
	var err error
	switch c.Kind {
	case graph.NodeCreated:
		_, err = g.remote.CreateNode(ctx, c.Node)
	case graph.NodeUpdated:
		_, err = g.remote.UpdateNode(ctx, c.Node.ID, c.Patch)
	case graph.NodeDeleted:
		return g.pushNodeDelete(ctx, c)
	case graph.ConnectionCreated:
		_, err = g.remote.CreateConnection(ctx, c.Connection)
	case graph.ConnectionDeleted:
		err = g.remote.DeleteConnection(ctx, c.Connection.ID)
	case graph.ElementsChanged:
		err = g.pushElements(ctx, c.Elements)
	case graph.Replaced:
		err = g.remote.Import(ctx, c.Snapshot)
		if err == nil {
			g.setElementsID(0)
		}
	default:
		return nil
	}
	if err != nil {
		g.report(string(c.Kind), c.Kind, err, nil)
	}
	return err
}

// pushNodeDelete removes the incident connections one at a time, then
// the node. The first failure stops the sequence.
func (g *Gateway) pushNodeDelete(ctx context.Context, c graph.Change) error {
	partial := &PartialDelete{NodeID: c.Node.ID, Deleted: []int{}, Pending: []int{}}

	for i, conn := range c.Cascade {
		if err := g.remote.DeleteConnection(ctx, conn.ID); err != nil {
			for _, rest := range c.Cascade[i:] {
				partial.Pending = append(partial.Pending, rest.ID)
			}
			g.report(fmt.Sprintf("delete connection %d of node %d", conn.ID, c.Node.ID), c.Kind, err, partial)
			return err
		}
		partial.Deleted = append(partial.Deleted, conn.ID)
	}

	if err := g.remote.DeleteNode(ctx, c.Node.ID); err != nil {
		g.report(fmt.Sprintf("delete node %d", c.Node.ID), c.Kind, err, partial)
		return err
	}
	return nil
}

// pushElements writes the registry singleton, creating it on first use
func (g *Gateway) pushElements(ctx context.Context, elements *domain.GameElements) error {
	if elements == nil {
		elements = domain.NewGameElements()
	}

	id, err := g.resolveElementsID(ctx)
	if err != nil {
		return err
	}
	if id != 0 {
		_, err = g.remote.UpdateGameElements(ctx, id, *elements)
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}

	rec, err := g.remote.CreateGameElements(ctx, *elements)
	if err != nil {
		return err
	}
	g.setElementsID(rec.ID)
	return nil
}

func (g *Gateway) resolveElementsID(ctx context.Context) (int, error) {
	g.elementsMu.Lock()
	id := g.elementsID
	g.elementsMu.Unlock()
	if id != 0 {
		return id, nil
	}

	records, err := g.remote.ListGameElements(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) > 0 {
		g.setElementsID(records[0].ID)
		return records[0].ID, nil
	}
	return 0, nil
}

func (g *Gateway) setElementsID(id int) {
	g.elementsMu.Lock()
	g.elementsID = id
	g.elementsMu.Unlock()
}

func (g *Gateway) report(op string, change graph.ChangeKind, err error, partial *PartialDelete) {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindNetwork
	}
	g.notifier.Notify(Notice{Kind: kind, Op: op, Change: change, Err: err, Partial: partial})
}

// ExportSnapshot returns the whole graph as a document
func (g *Gateway) ExportSnapshot() *domain.Snapshot {
	return g.store.Snapshot()
}

// Export writes the graph in the given format ("json" or "yaml")
func (g *Gateway) Export(w io.Writer, format string) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	return c.Export(g.ExportSnapshot(), w)
}

// ImportSnapshot replaces the graph with doc. Absent collections become
// empty and the node counter follows the largest imported id. A document
// that does not describe a consistent graph is a ParseFailure and leaves
// the graph untouched.
func (g *Gateway) ImportSnapshot(doc *domain.Snapshot) error {
	if doc == nil {
		return domain.Errorf(domain.KindParse, "import", "no document")
	}
	if err := g.store.Replace(doc); err != nil {
		return err
	}
	g.logger.Info("snapshot imported",
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("connections", len(doc.Connections)),
	)
	return nil
}

// Import parses a document in the given format and imports it
func (g *Gateway) Import(r io.Reader, format string) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	doc, err := c.Parse(r)
	if err != nil {
		return err
	}
	return g.ImportSnapshot(doc)
}

// SaveLocalSnapshot writes the graph with a timestamp to the local slot
func (g *Gateway) SaveLocalSnapshot(ctx context.Context) (time.Time, error) {
	if g.slot == nil {
		return time.Time{}, errors.New("save local snapshot: no local slot configured")
	}

	doc := g.store.Snapshot()
	ts := g.now().UTC()
	doc.Timestamp = &ts

	var buf bytes.Buffer
	if err := codec.NewJSONCodec().Export(doc, &buf); err != nil {
		return time.Time{}, fmt.Errorf("save local snapshot: %w", err)
	}
	if err := g.slot.Put(ctx, g.slotKey, buf.Bytes()); err != nil {
		return time.Time{}, fmt.Errorf("save local snapshot: %w", err)
	}

	g.logger.Info("local snapshot saved",
		zap.String("key", g.slotKey),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Time("timestamp", ts),
	)
	return ts, nil
}

// LocalSnapshotSavedAt reports when the local slot was last written. An
// empty slot is NotFound.
func (g *Gateway) LocalSnapshotSavedAt(ctx context.Context) (time.Time, error) {
	if g.slot == nil {
		return time.Time{}, errors.New("local snapshot: no local slot configured")
	}
	return g.slot.SavedAt(ctx, g.slotKey)
}

// ClearLocalSnapshot empties the local slot
func (g *Gateway) ClearLocalSnapshot(ctx context.Context) error {
	if g.slot == nil {
		return errors.New("clear local snapshot: no local slot configured")
	}
	if err := g.slot.Delete(ctx, g.slotKey); err != nil {
		return err
	}
	g.logger.Info("local snapshot cleared", zap.String("key", g.slotKey))
	return nil
}

// LoadLocalSnapshot replaces the graph with the one in the local slot and
// returns the loaded document. An empty slot is NotFound; a corrupt one is
// a ParseFailure. Either way the graph is untouched.
func (g *Gateway) LoadLocalSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	if g.slot == nil {
		return nil, errors.New("load local snapshot: no local slot configured")
	}

	data, err := g.slot.Get(ctx, g.slotKey)
	if err != nil {
		return nil, err
	}
	doc, err := codec.NewJSONCodec().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := g.ImportSnapshot(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Hydrate loads the graph from the remote store without echoing it back.
// Stored connections that no longer join two nodes are left out, each
// reported as a Notice with Skipped set.
func (g *Gateway) Hydrate(ctx context.Context) error {
	if g.remote == nil {
		return errors.New("hydrate: no remote store configured")
	}

	var (
		nodes   []domain.Node
		conns   []domain.Connection
		records []domain.ElementsRecord
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		nodes, err = g.remote.ListNodes(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		conns, err = g.remote.ListConnections(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		records, err = g.remote.ListGameElements(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	doc := &domain.Snapshot{Nodes: nodes, Connections: conns}
	if len(records) > 0 {
		elements := records[0].GameElements
		doc.GameElements = &elements
		g.setElementsID(records[0].ID)
	}
	dropped, err := g.store.Hydrate(doc)
	if err != nil {
		return err
	}
	for _, c := range dropped {
		g.notifier.Notify(Notice{
			Kind:    domain.KindInvalidEdge,
			Op:      fmt.Sprintf("load connection %d", c.ID),
			Err:     domain.Errorf(domain.KindInvalidEdge, "hydrate", "connection %d from node %d to node %d does not join two existing nodes", c.ID, c.From, c.To),
			Skipped: &c,
		})
	}

	g.logger.Info("graph hydrated from remote store",
		zap.Int("nodes", len(nodes)),
		zap.Int("connections", len(conns)-len(dropped)),
		zap.Int("skipped_connections", len(dropped)),
	)
	return nil
}

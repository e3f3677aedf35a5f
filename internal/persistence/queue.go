package persistence

import (
	"context"
	"errors"
	"sync"

	"dialoguetree/internal/domain"
	"dialoguetree/internal/graph"
)

var (
	// ErrQueueFull means a change was dropped because the sync backlog is at capacity
	ErrQueueFull = errors.New("sync queue full")

	// ErrNotStarted means the sync worker is not running
	ErrNotStarted = errors.New("sync worker not started")

	// ErrAlreadyStarted means Start was called twice
	ErrAlreadyStarted = errors.New("sync worker already started")
)

// item is either a change to push or a flush barrier
type item struct {
	change  graph.Change
	barrier chan struct{}
}

// syncQueue is a bounded FIFO with a single consumer. Push never blocks.
// Consecutive updates to the same node collapse into one.
type syncQueue struct {
	mu       sync.Mutex
	items    []item
	capacity int
	wake     chan struct{}
	closed   bool

	stats QueueStats
}

// QueueStats counts what went through the sync queue
type QueueStats struct {
	Depth     int   `json:"depth"`
	Submitted int64 `json:"submitted"`
	Coalesced int64 `json:"coalesced"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

func newSyncQueue(capacity int) *syncQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &syncQueue{
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

func (q *syncQueue) push(c graph.Change) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.stats.Dropped++
		return ErrNotStarted
	}

	if c.Kind == graph.NodeUpdated && len(q.items) > 0 {
		last := &q.items[len(q.items)-1]
		if last.barrier == nil && last.change.Kind == graph.NodeUpdated && last.change.Node.ID == c.Node.ID {
			last.change.Patch = mergePatch(last.change.Patch, c.Patch)
			last.change.Node = c.Node
			q.stats.Submitted++
			q.stats.Coalesced++
			return nil
		}
	}

	if len(q.items) >= q.capacity {
		q.stats.Dropped++
		return ErrQueueFull
	}
	q.items = append(q.items, item{change: c})
	q.stats.Submitted++
	q.signal()
	return nil
}

// barrier enqueues a marker that is closed once everything ahead of it
// has been processed. Barriers ignore the capacity limit.
func (q *syncQueue) barrier() (<-chan struct{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrNotStarted
	}
	done := make(chan struct{})
	q.items = append(q.items, item{barrier: done})
	q.signal()
	return done, nil
}

func (q *syncQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop blocks until an item is available or ctx is done
func (q *syncQueue) pop(ctx context.Context) (item, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items[0] = item{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return it, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return item{}, false
		case <-q.wake:
		}
	}
}

// close stops accepting work, releases pending barriers, and reports how
// many changes were abandoned
func (q *syncQueue) close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	abandoned := 0
	for _, it := range q.items {
		if it.barrier != nil {
			close(it.barrier)
			continue
		}
		abandoned++
	}
	q.items = nil
	q.stats.Dropped += int64(abandoned)
	return abandoned
}

func (q *syncQueue) record(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.Processed++
	if err != nil {
		q.stats.Failed++
	}
}

func (q *syncQueue) snapshot() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	for _, it := range q.items {
		if it.barrier == nil {
			s.Depth++
		}
	}
	return s
}

// mergePatch returns a patch equivalent to applying older then newer
func mergePatch(older, newer domain.NodePatch) domain.NodePatch {
	out := older
	if newer.Kind != nil {
		out.Kind = newer.Kind
	}
	if newer.X != nil {
		out.X = newer.X
	}
	if newer.Y != nil {
		out.Y = newer.Y
	}
	if newer.Text != nil {
		out.Text = newer.Text
	}
	if newer.Choices != nil {
		out.Choices = newer.Choices
	}
	if newer.AssociatedNPC != nil {
		out.AssociatedNPC = newer.AssociatedNPC
	}
	if newer.Conditions != nil {
		out.Conditions = newer.Conditions
	}
	if newer.Consequences != nil {
		out.Consequences = newer.Consequences
	}
	return out
}

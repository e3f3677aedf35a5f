package persistence

import (
	"fmt"

	"go.uber.org/zap"

	"dialoguetree/internal/domain"
	"dialoguetree/internal/graph"
)

// PartialDelete records how far a cascading remote delete got before it
// stopped. Deleted connections are gone remotely, Pending ones (starting
// with the one that failed) are still there, and so is the node.
type PartialDelete struct {
	NodeID  int   `json:"node_id"`
	Deleted []int `json:"deleted"`
	Pending []int `json:"pending"`
}

// Notice reports a failed remote synchronization. Local state is never
// rolled back; the notice is the only trace.
type Notice struct {
	Kind    domain.ErrorKind
	Op      string
	Change  graph.ChangeKind
	Err     error
	Partial *PartialDelete

	// Skipped is set when the notice is not a sync failure but a stored
	// connection that Hydrate left out of the graph
	Skipped *domain.Connection
}

func (n Notice) String() string {
	if n.Skipped != nil {
		return fmt.Sprintf("%s skipped (%s): %v", n.Op, n.Kind, n.Err)
	}
	msg := fmt.Sprintf("%s failed (%s): %v", n.Op, n.Kind, n.Err)
	if p := n.Partial; p != nil {
		msg += fmt.Sprintf("; node %d: %d connection(s) removed remotely, %d left, node still present remotely",
			p.NodeID, len(p.Deleted), len(p.Pending))
	}
	return msg
}

// Notifier receives sync failure notices
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

// logNotifier is the default: failures go to the log
type logNotifier struct {
	logger *zap.Logger
}

func (l logNotifier) Notify(n Notice) {
	fields := []zap.Field{
		zap.String("op", n.Op),
		zap.String("kind", string(n.Kind)),
		zap.String("change", string(n.Change)),
		zap.Error(n.Err),
	}
	if n.Partial != nil {
		fields = append(fields,
			zap.Int("node_id", n.Partial.NodeID),
			zap.Ints("deleted_connections", n.Partial.Deleted),
			zap.Ints("pending_connections", n.Partial.Pending),
		)
	}
	if n.Skipped != nil {
		l.logger.Warn("remote connection skipped", append(fields, zap.Int("connection_id", n.Skipped.ID))...)
		return
	}
	l.logger.Warn("remote sync failed", fields...)
}

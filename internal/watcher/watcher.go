// Package watcher re-imports a snapshot file whenever it changes on disk.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"dialoguetree/internal/codec"
	"dialoguetree/internal/domain"
)

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func(ctx context.Context)
	debounce time.Duration
	logger   *zap.Logger
}

// New creates a new file watcher
func New(path string, onChange func(ctx context.Context), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		logger:   logger,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are still seen
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.logger.Info("watching snapshot file", zap.String("path", w.path))

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stopTimer := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				w.logger.Info("snapshot file changed", zap.String("path", w.path))
				w.onChange(ctx)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			stopTimer()
			return ctx.Err()
		}
	}
}

// Importer replaces a store with a snapshot
type Importer interface {
	Import(ctx context.Context, doc *domain.Snapshot) error
}

// Reloader parses a snapshot file and imports it. The format comes from
// the file extension.
type Reloader struct {
	path     string
	store    Importer
	logger   *zap.Logger
	onResult func(error)
}

// NewReloader creates a reloader. onResult, if set, is told the outcome of
// every reload.
func NewReloader(path string, store Importer, logger *zap.Logger, onResult func(error)) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{path: path, store: store, logger: logger, onResult: onResult}
}

// Reload imports the file once
func (r *Reloader) Reload(ctx context.Context) error {
	err := r.reload(ctx)
	if err != nil {
		r.logger.Error("snapshot reload failed",
			zap.String("path", r.path),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
	}
	if r.onResult != nil {
		r.onResult(err)
	}
	return err
}

// OnChange adapts Reload to a Watcher callback
func (r *Reloader) OnChange(ctx context.Context) {
	_ = r.Reload(ctx)
}

func (r *Reloader) reload(ctx context.Context) error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := codec.ForFormat(codec.FormatFromPath(r.path))
	if err != nil {
		return err
	}
	doc, err := c.Parse(f)
	if err != nil {
		return err
	}
	if err := r.store.Import(ctx, doc); err != nil {
		return err
	}

	r.logger.Info("snapshot reloaded",
		zap.String("path", r.path),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("connections", len(doc.Connections)),
	)
	return nil
}

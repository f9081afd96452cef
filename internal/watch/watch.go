// Package watch monitors a directory and re-ingests supported files as
// they appear or change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/coretext-ai/corpusqa/internal/core/ports/driving"
	"github.com/coretext-ai/corpusqa/internal/loaders"
	"github.com/coretext-ai/corpusqa/internal/logger"
)

// debounceDelay coalesces the burst of events editors emit per save.
const debounceDelay = 500 * time.Millisecond

// Watcher ingests supported files from a directory whenever they are
// created or written.
type Watcher struct {
	ingester   driving.IngestService
	collection string
	dir        string

	mu       sync.Mutex
	debounce map[string]*time.Timer
}

// New creates a watcher over dir that ingests into the collection.
func New(ingester driving.IngestService, collection, dir string) *Watcher {
	return &Watcher{
		ingester:   ingester,
		collection: collection,
		dir:        dir,
		debounce:   make(map[string]*time.Timer),
	}
}

// Run watches the directory until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("watching %s for %v files", w.dir, loaders.Extensions())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !loaders.Supported(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch %s: %v", w.dir, err)
		}
	}
}

// schedule queues a debounced ingest for the path, resetting any timer
// already pending for it.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path)
	})
}

// ingest loads and ingests one file. Failures are logged, not fatal:
// one bad file must not stop the watch loop.
func (w *Watcher) ingest(ctx context.Context, path string) {
	doc, err := loaders.Load(path)
	if err != nil {
		logger.Error("watch: %v", err)
		return
	}

	// Re-ingesting the same path replaces its previous chunks.
	doc.ID = filepath.Clean(path)

	n, err := w.ingester.Ingest(ctx, w.collection, doc)
	if err != nil {
		logger.Error("watch: ingest %s: %v", path, err)
		return
	}
	logger.Info("watch: ingested %s (%d chunks)", path, n)
}

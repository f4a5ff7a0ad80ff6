// Package watcher reloads the topology file when it changes on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"packetflow/internal/domain"
	"packetflow/internal/loader"
)

// ApplyFunc receives every topology that loads cleanly
type ApplyFunc func(*domain.Topology) error

// Watcher watches a topology file and hands each valid revision to apply.
// Revisions that fail to load are logged and skipped; the previous topology
// stays active.
type Watcher struct {
	path     string
	apply    ApplyFunc
	debounce time.Duration
	logger   *zap.Logger
}

// New creates a new topology watcher
func New(path string, apply ApplyFunc, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		apply:    apply,
		debounce: 500 * time.Millisecond,
		logger:   logger.Named("watcher"),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directory so editors that replace the file are still seen
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}

	w.logger.Info("watching topology file", zap.String("path", w.path))

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
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
				w.Reload()
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reload loads the file once and applies it. It reports whether the new
// topology was applied.
func (w *Watcher) Reload() bool {
	topo, err := loader.LoadTopology(w.path)
	if err != nil {
		w.logger.Warn("topology reload rejected", zap.String("path", w.path), zap.Error(err))
		return false
	}
	if err := w.apply(topo); err != nil {
		w.logger.Warn("topology apply failed", zap.String("path", w.path), zap.Error(err))
		return false
	}
	w.logger.Info("topology reloaded",
		zap.String("path", w.path),
		zap.Int("nodes", len(topo.Nodes())),
		zap.Int("edges", len(topo.Edges())))
	return true
}

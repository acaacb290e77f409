package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DestinationWatcher watches a destinations YAML file for changes and
// invokes onReload with the freshly parsed table, debouncing rapid
// successive writes the way editors/config-management tools produce them.
type DestinationWatcher struct {
	path             string
	debounceInterval time.Duration

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewDestinationWatcher creates a watcher for path. debounceInterval
// defaults to 100ms.
func NewDestinationWatcher(path string, debounceInterval time.Duration) (*DestinationWatcher, error) {
	if debounceInterval <= 0 {
		debounceInterval = 100 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create fsnotify watcher: %w", err)
	}
	return &DestinationWatcher{
		path:             path,
		debounceInterval: debounceInterval,
		watcher:          w,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}, nil
}

// Watch blocks, reloading the destination table on each debounced file
// change and passing it to onReload, until ctx is canceled or Stop is
// called. A reload error is logged and watching continues.
func (w *DestinationWatcher) Watch(ctx context.Context, onReload func(*DestinationTable)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("config: watcher already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch directory %q: %w", dir, err)
	}

	var debounceTimer *time.Timer
	reload := func() {
		table, err := LoadDestinationTable(w.path)
		if err != nil {
			slog.Error("destination table reload failed", "path", w.path, "error", err)
			return
		}
		slog.Info("destination table reloaded", "path", w.path, "groups", len(table.Groups), "rules", len(table.Rules))
		onReload(table)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("config: watcher events channel closed")
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounceInterval, reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("config: watcher errors channel closed")
			}
			slog.Error("destination watcher error", "error", err)
		}
	}
}

// Stop terminates the watch loop and releases the underlying fsnotify
// watcher.
func (w *DestinationWatcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.watcher.Close()
}

package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the workspace's memory directory and triggers a sync
// when files change. Events are debounced (500ms) so a burst of store
// rewrites costs one sync.
type Watcher struct {
	mgr      *Manager
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
}

// NewWatcher creates a watcher bound to the given engine.
func NewWatcher(mgr *Manager) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		mgr:      mgr,
		watcher:  w,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start begins watching the memory directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.mgr.memoryDir); err != nil {
		return err
	}

	w.mu.Lock()
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	go w.watchLoop()
	slog.Info("memory watcher started", "dir", w.mgr.memoryDir)
	return nil
}

// Stop halts the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopChan != nil {
		close(w.stopChan)
		w.stopChan = nil
	}
	w.mu.Unlock()
	w.watcher.Close()
	slog.Info("memory watcher stopped")
}

func (w *Watcher) watchLoop() {
	w.mu.Lock()
	stop := w.stopChan
	w.mu.Unlock()

	var debounceTimer *time.Timer

	for {
		select {
		case <-stop:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			// The index rewrites itself; ignore our own database churn
			// (index.db plus its WAL sidecars).
			if strings.HasPrefix(event.Name, w.mgr.dbPath) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				if err := w.mgr.Sync(context.Background(), "file-change", false); err != nil {
					slog.Error("watcher-triggered sync failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("memory watcher error", "error", err)
		}
	}
}

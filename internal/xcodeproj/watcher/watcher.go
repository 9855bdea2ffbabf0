// Package watcher detects changes made by other processes to project files
// this server has written.
package watcher

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/metrics"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/store"
)

// Watcher monitors the bundle directories of tracked project files. When a
// tracked file ends up with content other than what this process last wrote,
// it logs a warning and journals an external entry.
type Watcher struct {
	watcher *fsnotify.Watcher
	journal *store.Store
	logger  *log.Logger
	// edits is held while checking a file, so a check never observes a write
	// whose Track call has not happened yet. It is the editor's lock.
	edits sync.Locker

	mu    sync.Mutex
	known map[string]string
	dirs  map[string]bool
}

// NewWatcher creates a watcher. journal may be nil; edits may be nil when no
// editor writes concurrently.
func NewWatcher(journal *store.Store, edits sync.Locker, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if edits == nil {
		edits = &sync.Mutex{}
	}
	return &Watcher{
		watcher: fw,
		journal: journal,
		logger:  logger,
		edits:   edits,
		known:   make(map[string]string),
		dirs:    make(map[string]bool),
	}, nil
}

// Track records hash as the expected content of file and starts watching its
// directory. Writes replace the file by rename, so the directory is watched
// rather than the file.
func (w *Watcher) Track(file, hash string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	file = filepath.Clean(file)
	w.known[file] = hash
	dir := filepath.Dir(file)
	if w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("cannot watch project", "dir", dir, "err", err)
		return
	}
	w.dirs[dir] = true
}

// Start begins the event loop in a separate goroutine.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", "err", err)
			}
		}
	}()
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) expected(file string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	hash, ok := w.known[file]
	return hash, ok
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	file := filepath.Clean(event.Name)
	if _, ok := w.expected(file); !ok {
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		w.check(file)
	} else if event.Has(fsnotify.Remove) {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			w.logger.Warn("project file removed by another process", "file", file)
		}
	}
}

func (w *Watcher) check(file string) {
	w.edits.Lock()
	defer w.edits.Unlock()

	data, err := os.ReadFile(file)
	if err != nil {
		return
	}
	hash := store.Hash(data)
	want, _ := w.expected(file)
	if hash == want {
		return
	}

	bundle := filepath.Dir(file)
	w.logger.Warn("project changed outside the server", "project", bundle)
	metrics.RecordExternalEdit()
	if w.journal != nil {
		if _, err := w.journal.RecordExternal(bundle, want, data); err != nil {
			w.logger.Warn("journal write failed", "project", bundle, "err", err)
		}
	}
	w.mu.Lock()
	w.known[file] = hash
	w.mu.Unlock()
}

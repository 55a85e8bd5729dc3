package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called when files change
type ChangeHandler func(changed, removed []string)

// MatchFunc selects the files whose changes are reported
type MatchFunc func(path string) bool

// Watcher monitors a workspace for file changes using fsnotify
type Watcher struct {
	watcher   *fsnotify.Watcher
	rootPath  string
	match     MatchFunc
	debouncer *Debouncer
	done      chan struct{}
}

// New creates a new file watcher for the root path
func New(rootPath string, match MatchFunc, handler ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		rootPath: rootPath,
		match:    match,
		done:     make(chan struct{}),
	}
	w.debouncer = NewDebouncer(200*time.Millisecond, func(changed, removed []string) {
		slog.Debug("file changes", "changed", len(changed), "removed", len(removed))
		handler(changed, removed)
	})

	return w, nil
}

// Start begins watching for file changes
func (w *Watcher) Start() error {
	// Add all directories recursively
	err := filepath.WalkDir(w.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if d.IsDir() {
			if path != w.rootPath && skipDir(d.Name()) {
				return filepath.SkipDir
			}

			if err := w.watcher.Add(path); err != nil {
				slog.Warn("failed to watch directory", "path", path, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// editor settings live in a hidden directory
	if vscode := filepath.Join(w.rootPath, ".vscode"); isDir(vscode) {
		if err := w.watcher.Add(vscode); err != nil {
			slog.Warn("failed to watch directory", "path", vscode, "error", err)
		}
	}

	// Start the event loop
	go w.eventLoop()

	slog.Info("file watcher started", "root", w.rootPath)
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// Check if it's a directory event
	if event.Has(fsnotify.Create) && isDir(path) {
		// If a new directory was created, watch it
		if !skipDir(filepath.Base(path)) {
			if err := w.watcher.Add(path); err != nil {
				slog.Warn("failed to watch new directory", "path", path, "error", err)
			}
		}
		return
	}

	if !w.match(path) {
		return
	}

	w.debouncer.Add(path, event.Op)
}

// Close stops the watcher
func (w *Watcher) Close() error {
	close(w.done)
	w.debouncer.Stop()
	return w.watcher.Close()
}

// skipDir reports whether a directory is hidden or holds dependencies
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

func isDir(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

package watcher

import (
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debouncer batches file change events and reports them once no new event
// has arrived for the interval
type Debouncer struct {
	mu       sync.Mutex
	pending  map[string]fsnotify.Op
	interval time.Duration
	timer    *time.Timer
	fn       ChangeHandler
}

// NewDebouncer creates a debouncer that calls fn with each settled batch
func NewDebouncer(interval time.Duration, fn ChangeHandler) *Debouncer {
	return &Debouncer{
		pending:  make(map[string]fsnotify.Op),
		interval: interval,
		fn:       fn,
	}
}

// Add records a file change event and restarts the quiet period
func (d *Debouncer) Add(path string, op fsnotify.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] |= op

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop drops pending events
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = make(map[string]fsnotify.Op)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	var changed, removed []string
	for path, op := range d.pending {
		switch {
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
			removed = append(removed, path)
		case op.Has(fsnotify.Write) || op.Has(fsnotify.Create):
			changed = append(changed, path)
		}
	}
	d.pending = make(map[string]fsnotify.Op)
	d.mu.Unlock()

	if len(changed) == 0 && len(removed) == 0 {
		return
	}
	sort.Strings(changed)
	sort.Strings(removed)
	d.fn(changed, removed)
}

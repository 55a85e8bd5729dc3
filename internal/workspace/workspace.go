// Package workspace ties the settings of one project root to its step index
// and rebuilds the index when either changes.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jarredhawkins/gherkin-lsp/internal/config"
	"github.com/jarredhawkins/gherkin-lsp/internal/index"
	"github.com/jarredhawkins/gherkin-lsp/internal/query"
)

// snapshot is what queries see; it is swapped whole after each rebuild
type snapshot struct {
	idx      *index.Index
	engine   *query.Engine
	opts     index.Options
	warnings []index.ConfigWarning
}

// Workspace is one project root with its settings and step index
type Workspace struct {
	root         string
	settingsPath string
	store        *config.Store

	// serializes rebuilds
	mu    sync.Mutex
	state atomic.Pointer[snapshot]
}

// New creates a workspace. Nothing is indexed until Rebuild.
func New(root, settingsPath string, settings *config.Settings) *Workspace {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	w := &Workspace{
		root:         root,
		settingsPath: settingsPath,
		store:        config.NewStore(settings),
	}
	w.store.OnChange(func(old, new_ *config.Settings) {
		slog.Info("settings changed", "steps", new_.Steps, "syncfeatures", new_.SyncFeatures.Pattern())
	})
	return w
}

// Open finds and loads the settings file of root, applies overrides (editor
// settings JSON, may be empty) and returns the workspace
func Open(root string, overrides json.RawMessage) (*Workspace, error) {
	path := config.Find(root)
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if settings, err = config.FromLSP(overrides, settings); err != nil {
			return nil, err
		}
		if err := settings.Validate(); err != nil {
			return nil, fmt.Errorf("validating editor settings: %w", err)
		}
	}
	return New(root, path, settings), nil
}

// Rebuild rescans step definitions and, when enabled, feature usages.
// The index is reused while the index options stay the same, so usage
// counts from accepted completions survive until the next recount.
func (w *Workspace) Rebuild(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	settings := w.store.Get()
	opts := settings.IndexOptions()

	var idx *index.Index
	if cur := w.state.Load(); cur != nil && reflect.DeepEqual(cur.opts, opts) {
		idx = cur.idx
	} else {
		var err error
		if idx, err = index.New(w.root, opts); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	warnings, err := idx.Build(ctx, settings.Steps)
	if err != nil {
		return err
	}
	if p := settings.SyncFeatures.Pattern(); p != "" {
		if err := idx.Recount(ctx, []string{p}); err != nil {
			return err
		}
	}

	w.state.Store(&snapshot{
		idx:      idx,
		engine:   query.New(idx, settings.QueryOptions()),
		opts:     opts,
		warnings: warnings,
	})
	return nil
}

// Reload re-reads the settings file and rebuilds
func (w *Workspace) Reload(ctx context.Context) error {
	if w.settingsPath == "" {
		w.settingsPath = config.Find(w.root)
	}
	settings, err := config.Load(w.settingsPath)
	if err != nil {
		return err
	}
	w.store.Swap(settings)
	return w.Rebuild(ctx)
}

// UpdateSettings swaps in new settings and rebuilds
func (w *Workspace) UpdateSettings(ctx context.Context, settings *config.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	w.store.Swap(settings)
	return w.Rebuild(ctx)
}

// Engine returns the query engine of the last rebuild, nil before the first
func (w *Workspace) Engine() *query.Engine {
	if s := w.state.Load(); s != nil {
		return s.engine
	}
	return nil
}

// Index returns the step index of the last rebuild, nil before the first
func (w *Workspace) Index() *index.Index {
	if s := w.state.Load(); s != nil {
		return s.idx
	}
	return nil
}

// Warnings returns the configuration warnings of the last rebuild
func (w *Workspace) Warnings() []index.ConfigWarning {
	if s := w.state.Load(); s != nil {
		return s.warnings
	}
	return nil
}

func (w *Workspace) Root() string               { return w.root }
func (w *Workspace) SettingsPath() string       { return w.settingsPath }
func (w *Workspace) Settings() *config.Settings { return w.store.Get() }

// Affects reports whether a change to path can change the index: the
// settings file, a step definition file or a counted feature file
func (w *Workspace) Affects(path string) bool {
	if config.IsSettingsFile(w.root, path) {
		return true
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	settings := w.store.Get()
	globs := settings.Steps
	if p := settings.SyncFeatures.Pattern(); p != "" {
		globs = append(globs[:len(globs):len(globs)], p)
	}
	for _, g := range globs {
		if ok, _ := doublestar.Match(filepath.ToSlash(g), rel); ok {
			return true
		}
	}
	return false
}

// IsFeature reports whether path is a Gherkin feature file
func IsFeature(path string) bool {
	return strings.HasSuffix(path, ".feature")
}

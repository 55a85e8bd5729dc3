package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
	"github.com/jarredhawkins/gherkin-lsp/internal/pattern"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

// Maximum number of files read at once during a scan
const readConcurrency = 8

// ConfigWarning reports a configured glob that matched no files
type ConfigWarning struct {
	Pattern string
	Message string
}

func (w ConfigWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Pattern, w.Message)
}

// Options controls how definitions are discovered and compiled
type Options struct {
	Mode       pattern.Mode
	Aliases    []pattern.Alias
	Invariants bool // register one step per alternative of an (a|b) group
	Parser     parser.Options
}

// Index is the step registry: every compiled step definition of the
// workspace plus their usage counts
type Index struct {
	mu sync.RWMutex

	// Steps in scan order
	steps []*types.Step

	// ID -> step
	byID map[string]*types.Step

	// ID -> usage count
	counts map[string]int

	rootPath   string
	mode       pattern.Mode
	invariants bool
	compiler   *pattern.Compiler
	scanner    *parser.Scanner
}

// New creates an empty index for the given root path
func New(rootPath string, opts Options) (*Index, error) {
	registry := parser.NewRegistry()
	if err := parser.RegisterDefaults(registry, opts.Parser); err != nil {
		return nil, err
	}

	if abs, err := filepath.Abs(rootPath); err == nil {
		rootPath = abs
	}

	return &Index{
		byID:       make(map[string]*types.Step),
		counts:     make(map[string]int),
		rootPath:   rootPath,
		mode:       opts.Mode,
		invariants: opts.Invariants,
		compiler:   &pattern.Compiler{Mode: opts.Mode, Aliases: opts.Aliases},
		scanner:    parser.NewScanner(registry),
	}, nil
}

// Build scans every file matched by patterns and replaces the registered
// steps with what it finds. Patterns are relative to the root path. A pattern
// matching no files yields a ConfigWarning; unreadable files are skipped.
func (idx *Index) Build(ctx context.Context, patterns []string) ([]ConfigWarning, error) {
	slog.Debug("building step index", "root", idx.rootPath, "patterns", patterns)

	files, warnings := idx.expand(patterns)
	for _, w := range warnings {
		slog.Warn("steps glob matched no files", "pattern", w.Pattern)
	}

	defs, err := idx.readAll(ctx, files)
	if err != nil {
		return warnings, err
	}

	var (
		steps []*types.Step
		byID  = make(map[string]*types.Step)
	)
	for i, path := range files {
		for _, def := range defs[i] {
			for _, step := range idx.compile(path, def) {
				if _, ok := byID[step.ID]; ok {
					continue
				}
				byID[step.ID] = step
				steps = append(steps, step)
			}
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, step := range steps {
		step.Count = idx.counts[step.ID]
	}
	idx.steps = steps
	idx.byID = byID

	slog.Info("indexed steps", "files", len(files), "steps", len(steps))
	return warnings, nil
}

// expand resolves patterns to a de-duplicated file list in pattern order
func (idx *Index) expand(patterns []string) ([]string, []ConfigWarning) {
	var (
		files    []string
		warnings []ConfigWarning
		seen     = make(map[string]bool)
	)
	for _, p := range patterns {
		matches, err := idx.glob(p)
		if err != nil {
			slog.Warn("invalid glob", "pattern", p, "error", err)
		}
		if len(matches) == 0 {
			warnings = append(warnings, ConfigWarning{Pattern: p, Message: "No steps files found"})
			continue
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, warnings
}

// glob expands one pattern relative to the root into absolute file paths
func (idx *Index) glob(p string) ([]string, error) {
	named := patternSegments(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(idx.rootPath, p)
	}

	matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	result := matches[:0]
	for _, m := range matches {
		if abs, err := filepath.Abs(m); err == nil {
			m = abs
		}
		if rel, err := filepath.Rel(idx.rootPath, m); err == nil && skipPath(rel, named) {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

// readAll parses files concurrently; results are indexed like files so the
// merge keeps scan order
func (idx *Index) readAll(ctx context.Context, files []string) ([][]parser.Definition, error) {
	results := make([][]parser.Definition, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("failed to read steps file", "path", path, "error", err)
				return nil
			}
			results[i] = idx.scanner.Parse(path, content)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan steps: %w", err)
	}
	return results, nil
}

// compile turns one definition into its registry entries. Invalid patterns
// are dropped.
func (idx *Index) compile(path string, def parser.Definition) []*types.Step {
	raws := []string{def.Pattern}
	if idx.invariants {
		raws = pattern.Invariants(def.Pattern)
	}

	desc := pattern.DefinitionText(def.LineText)
	doc := def.Documentation
	if doc == "" {
		doc = def.LineText
	}
	category := gherkin.ForDefinition(def.Keyword)
	loc := types.Location{Path: path, Line: def.Line}

	var steps []*types.Step
	for _, raw := range raws {
		compiled, err := idx.compiler.Compile(raw)
		if err != nil {
			slog.Debug("dropping step definition", "location", loc, "error", err)
			continue
		}
		if compiled.PartialFallback {
			slog.Debug("partial pattern did not compile, using full pattern", "location", loc, "pattern", raw)
		}

		text := pattern.DisplayText(raw)
		steps = append(steps, &types.Step{
			ID:            types.StepID(text),
			Full:          compiled.Full,
			Partial:       compiled.Partial,
			Pattern:       raw,
			Text:          text,
			Desc:          desc,
			Documentation: doc,
			Category:      category,
			Location:      loc,
		})
	}
	return steps
}

// Steps returns all steps in scan order
func (idx *Index) Steps() []*types.Step {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make([]*types.Step, len(idx.steps))
	copy(result, idx.steps)
	return result
}

// Get returns the step with the given ID
func (idx *Index) Get(id string) (*types.Step, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	step, ok := idx.byID[id]
	return step, ok
}

// Len returns the number of registered steps
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.steps)
}

// FindByText returns the first step, in scan order, whose full pattern
// matches text
func (idx *Index) FindByText(text string) *types.Step {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.findLocked(text, nil)
}

// FindByTextCategory is FindByText restricted to steps of category c
func (idx *Index) FindByTextCategory(text string, c gherkin.Category) *types.Step {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.findLocked(text, &c)
}

func (idx *Index) findLocked(text string, c *gherkin.Category) *types.Step {
	for _, step := range idx.steps {
		if c != nil && step.Category != *c {
			continue
		}
		if step.Matches(text) {
			return step
		}
	}
	return nil
}

// RootPath returns the root path of the index
func (idx *Index) RootPath() string {
	return idx.rootPath
}

// Mode returns the pattern mode steps were compiled with
func (idx *Index) Mode() pattern.Mode {
	return idx.mode
}

// Compiler returns the compiler steps were built with
func (idx *Index) Compiler() *pattern.Compiler {
	return idx.compiler
}

// skipPath reports whether a root-relative path lies in a hidden or
// dependency directory that the pattern does not name
func skipPath(rel string, named map[string]bool) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if named[part] {
			continue
		}
		if part == "node_modules" || part == "vendor" {
			return true
		}
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

// patternSegments returns the literal path segments of a glob pattern
func patternSegments(p string) map[string]bool {
	named := make(map[string]bool)
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part != "" && !strings.ContainsAny(part, "*?[{\\") {
			named[part] = true
		}
	}
	return named
}

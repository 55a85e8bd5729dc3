package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
)

// Recount zeroes every usage count, then counts how many step lines of the
// feature files matched by patterns resolve to each step. Running it twice
// on unchanged files gives the same counts.
func (idx *Index) Recount(ctx context.Context, patterns []string) error {
	var files []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		matches, err := idx.glob(p)
		if err != nil {
			slog.Warn("invalid glob", "pattern", p, "error", err)
			continue
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	contents := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("failed to read feature file", "path", path, "error", err)
				return nil
			}
			contents[i] = string(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("recount usages: %w", err)
	}

	idx.mu.RLock()
	counts := make(map[string]int)
	for _, text := range contents {
		idx.countLocked(text, counts)
	}
	idx.mu.RUnlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.counts = counts
	for _, step := range idx.steps {
		step.Count = counts[step.ID]
	}

	slog.Debug("recounted step usages", "files", len(files))
	return nil
}

// countLocked adds the step usages of one feature document to counts
func (idx *Index) countLocked(text string, counts map[string]int) {
	lines := gherkin.SplitLines(text)
	for i, line := range lines {
		parsed, ok := idx.stepLineLocked(line, i, lines)
		if !ok {
			continue
		}
		if step := idx.findLocked(parsed.Text, nil); step != nil {
			counts[step.ID]++
		}
	}
}

// Increment bumps the usage count of one step, as when a completion for it
// is accepted
func (idx *Index) Increment(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.counts[id]++
	if step, ok := idx.byID[id]; ok {
		step.Count = idx.counts[id]
	}
}

// Count returns the usage count of a step
func (idx *Index) Count(id string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.counts[id]
}

// StepLine parses line as a Gherkin step line. Scenario Outline placeholders
// are replaced with the values of the nearest following Examples table;
// the variant with quoted values wins when it resolves to a step.
func (idx *Index) StepLine(line string, lineIndex int, lines []string) (gherkin.Line, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.stepLineLocked(line, lineIndex, lines)
}

func (idx *Index) stepLineLocked(line string, lineIndex int, lines []string) (gherkin.Line, bool) {
	if !gherkin.HasPlaceholders(line) {
		return gherkin.ParseLine(line)
	}

	bindings := gherkin.FindBindings(lines, lineIndex)
	quoted, ok := gherkin.ParseLine(gherkin.Substitute(line, bindings, true))
	if ok && quoted.Text != "" && idx.findLocked(quoted.Text, nil) != nil {
		return quoted, true
	}
	return gherkin.ParseLine(gherkin.Substitute(line, bindings, false))
}

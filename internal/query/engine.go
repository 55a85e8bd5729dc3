// Package query answers editor questions about Gherkin step lines against
// the step index: is a line backed by a definition, where is that
// definition, and which steps complete a partially typed line.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
	"github.com/jarredhawkins/gherkin-lsp/internal/index"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

// Severity of a diagnostic, numbered as in LSP
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic reports a step line without a matching definition.
// Columns are byte offsets into the line.
type Diagnostic struct {
	Line      int
	StartChar int
	EndChar   int
	Severity  Severity
	Message   string
}

// Candidate is one completion proposal
type Candidate struct {
	ID            string // step ID, passed back on acceptance
	Label         string
	Detail        string
	Documentation string
	SortText      string
	InsertText    string // snippet text
}

// Options toggles the optional query behaviors
type Options struct {
	// StrictValidation only accepts steps whose category matches the
	// resolved category of the line
	StrictValidation bool
	// StrictCompletion only proposes steps of the resolved category
	StrictCompletion bool
	// SmartSnippets turns regex placeholders in insert text into ${n:} tab stops
	SmartSnippets bool
}

// Engine runs queries against an index
type Engine struct {
	idx  *index.Index
	opts Options
}

// New creates an engine over idx
func New(idx *index.Index, opts Options) *Engine {
	return &Engine{idx: idx, opts: opts}
}

// Validate checks one line of a feature document. It returns nil when the
// line is not a step line or when a step matches it.
func (e *Engine) Validate(line string, lineIndex int, lines []string) *Diagnostic {
	line = strings.TrimRightFunc(line, isSpace)
	parsed, ok := e.idx.StepLine(line, lineIndex, lines)
	if !ok {
		return nil
	}

	var step *types.Step
	if e.opts.StrictValidation {
		category := gherkin.ResolveCategory(parsed.Keyword, lineIndex, lines)
		step = e.idx.FindByTextCategory(parsed.Text, category)
	} else {
		step = e.idx.FindByText(parsed.Text)
	}
	if step != nil {
		return nil
	}

	return &Diagnostic{
		Line:      lineIndex,
		StartChar: len(parsed.Indent),
		EndChar:   len(line),
		Severity:  SeverityWarning,
		Message:   fmt.Sprintf(`Was unable to find step for "%s"`, strings.TrimLeftFunc(line, isSpace)),
	}
}

// FindDefinition returns where the step matching line is defined, or nil
func (e *Engine) FindDefinition(line string, lineIndex int, lines []string) *types.Location {
	parsed, ok := e.idx.StepLine(line, lineIndex, lines)
	if !ok {
		return nil
	}
	step := e.idx.FindByText(parsed.Text)
	if step == nil {
		return nil
	}
	loc := step.Location
	return &loc
}

var lastWordPattern = regexp.MustCompile(`[^\s]+$`)

// Complete proposes steps for line, the text of a step line up to the
// cursor. The last word may be incomplete and is ignored when filtering.
// Candidates come most used first, then by label. Returns nil when nothing
// fits.
func (e *Engine) Complete(line string, lineIndex int, lines []string) []Candidate {
	parsed, ok := e.idx.StepLine(line, lineIndex, lines)
	if !ok {
		return nil
	}
	stepPart := lastWordPattern.ReplaceAllString(parsed.Text, "")

	var category gherkin.Category
	if e.opts.StrictCompletion {
		category = gherkin.ResolveCategory(parsed.Keyword, lineIndex, lines)
	}

	var candidates []Candidate
	for _, step := range e.idx.Steps() {
		if e.opts.StrictCompletion && step.Category != category {
			continue
		}
		if !step.MatchesPrefix(stepPart) {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:            step.ID,
			Label:         step.Text,
			Detail:        step.Desc,
			Documentation: step.Documentation,
			SortText:      SortText(e.idx.Count(step.ID), step.Text),
			InsertText:    e.InsertText(step, stepPart),
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SortText < candidates[j].SortText
	})
	return candidates
}

// ResolveAcceptance records that the completion for step id was accepted
func (e *Engine) ResolveAcceptance(id string) {
	e.idx.Increment(id)
}

// SortText orders candidates by descending usage count, then by label
func SortText(count int, label string) string {
	inverse := 99999 - count
	if inverse < 0 {
		inverse = 0
	}
	return fmt.Sprintf("%05d_%s", inverse, label)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\v' || r == '\f'
}

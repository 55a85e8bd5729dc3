package parser

import (
	"sort"
)

// ParseContext provides context for matching
type ParseContext struct {
	FilePath string // Absolute path of the file being parsed
	LineNum  int    // Current line number (0-indexed)
}

// MatchResult is a step definition found on a line
type MatchResult struct {
	// Keyword is the governing call, e.g. "Given" or "defineStep"
	Keyword string
	// Pattern is the text between the step delimiters
	Pattern string
}

// Matcher recognizes one shape of step-definition line
type Matcher interface {
	// Name returns plugin identifier
	Name() string

	// Match tests if line declares a step definition
	// Returns nil if no match
	Match(line string, ctx *ParseContext) *MatchResult

	// Priority for ordering (higher = earlier)
	Priority() int
}

// Registry holds all registered matchers. Register before sharing it;
// matching is safe for concurrent use.
type Registry struct {
	matchers []Matcher
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		matchers: make([]Matcher, 0),
	}
}

// Register adds a matcher to the registry
func (r *Registry) Register(m Matcher) {
	r.matchers = append(r.matchers, m)
	sort.SliceStable(r.matchers, func(i, j int) bool {
		return r.matchers[i].Priority() > r.matchers[j].Priority()
	})
}

// Matchers returns all registered matchers in priority order
func (r *Registry) Matchers() []Matcher {
	return r.matchers
}

// Match returns the result of the first matcher that accepts line
func (r *Registry) Match(line string, ctx *ParseContext) *MatchResult {
	for _, m := range r.Matchers() {
		if result := m.Match(line, ctx); result != nil {
			return result
		}
	}
	return nil
}

// Options override the shape of a definition line
type Options struct {
	// KeywordPart is a regex for the governing call names.
	// Empty means the Gherkin keywords plus defineStep, Step and StepDefinition.
	KeywordPart string
	// Delimiters lists the characters that may open and close a step pattern.
	// Empty means / " ' and backtick.
	Delimiters string
}

// RegisterDefaults adds the default step-definition matchers to the registry
func RegisterDefaults(r *Registry, opts Options) error {
	def, err := NewDefinitionMatcher(opts.KeywordPart, opts.Delimiters)
	if err != nil {
		return err
	}
	r.Register(def)
	r.Register(&AnnotationMatcher{})
	return nil
}

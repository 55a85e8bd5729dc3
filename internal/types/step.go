package types

import (
	"fmt"
	"regexp"

	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
	"github.com/zeebo/xxh3"
)

// Location is where a step definition was declared
type Location struct {
	Path string // Absolute path
	Line int    // 0-indexed
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.Path, l.Line+1)
}

// Step is one compiled step definition
type Step struct {
	ID            string         // hash of Text, used for dedupe and usage counts
	Full          *regexp.Regexp // matches a complete step text
	Partial       *regexp.Regexp // matches any word prefix of the step text
	Pattern       string         // raw pattern the regexes were compiled from
	Text          string         // label shown in completion
	Desc          string         // definition line without its function body
	Documentation string         // doc comment description, or the definition line
	Category      gherkin.Category
	Location      Location
	Count         int // usage count
}

// StepID returns the identity of a step with the given display text
func StepID(text string) string {
	return fmt.Sprintf("step%016x", xxh3.HashString(text))
}

// Matches reports whether text is a complete match for the step
func (s *Step) Matches(text string) bool {
	return s.Full.MatchString(text)
}

// MatchesPrefix reports whether text is a plausible start of the step
func (s *Step) MatchesPrefix(text string) bool {
	return s.Partial.MatchString(text)
}

package parser

import (
	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
)

// Definition is one step definition discovered in a source file
type Definition struct {
	Keyword string // governing call, e.g. "Given" or "defineStep"
	Pattern string // raw step pattern between the delimiters
	Line    int    // 0-indexed line the definition starts on
	// LineText is the source line the definition was read from. When a
	// definition is split over two lines, both are joined here.
	LineText string
	// Documentation is the description from a doc comment directly above
	// the definition, if any
	Documentation string
}

// Scanner parses step-definition files line by line
type Scanner struct {
	registry *Registry
}

// NewScanner creates a new scanner with the given registry
func NewScanner(registry *Registry) *Scanner {
	return &Scanner{
		registry: registry,
	}
}

// Parse scans the file content and returns all discovered step definitions
func (s *Scanner) Parse(filePath string, content []byte) []Definition {
	text := string(content)
	docs := DocComments(gherkin.SplitLines(text))
	lines := gherkin.SplitLines(StripComments(text))

	ctx := &ParseContext{FilePath: filePath}

	var defs []Definition
	for lineNum, line := range lines {
		ctx.LineNum = lineNum

		result := s.registry.Match(line, ctx)
		if result == nil {
			result, line = s.matchJoined(lines, lineNum, ctx)
		}
		if result == nil {
			continue
		}

		def := Definition{
			Keyword:  result.Keyword,
			Pattern:  result.Pattern,
			Line:     lineNum,
			LineText: line,
		}
		if raw, ok := docs[lineNum]; ok {
			def.Documentation = Documentation(raw)
		}
		defs = append(defs, def)
	}

	return defs
}

// matchJoined handles a definition whose call and pattern sit on adjacent
// lines. The pair only counts when the next line does not match on its own,
// otherwise that line is reported by itself on the next iteration.
func (s *Scanner) matchJoined(lines []string, lineNum int, ctx *ParseContext) (*MatchResult, string) {
	if lineNum+1 >= len(lines) || lines[lineNum+1] == "" {
		return nil, ""
	}

	next := lines[lineNum+1]
	ctx.LineNum = lineNum + 1
	nextMatch := s.registry.Match(next, ctx)
	ctx.LineNum = lineNum
	if nextMatch != nil {
		return nil, ""
	}

	joined := lines[lineNum] + next
	if result := s.registry.Match(joined, ctx); result != nil {
		return result, joined
	}
	return nil, ""
}

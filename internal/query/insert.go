package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jarredhawkins/gherkin-lsp/internal/pattern"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

var (
	// (\d+)  .*  [^"]*  \w{2,3}
	placeholderPattern = regexp.MustCompile(`((?:\()?(?:\\.|\.|\[[^\]]+\])(?:\*|\+|\{[^}]+\})(?:\)?))`)

	quotedClassPattern = regexp.MustCompile(`"\[\^"\][+*]"`)
)

// Parameter fragments rewritten to the shape a user would type. Longest first.
var fragmentSimplifier = strings.NewReplacer(
	`("[^"]*"|'[^']*')`, `"[^"]*"`,
	`-?\d*\.?\d+`, `\d+`,
	`-?\d+`, `\d+`,
)

// InsertText returns the text inserted when step is chosen while the user
// has typed stepPart. Leading tokens the typed text already covers are left
// out; the result starts at the first token it does not.
func (e *Engine) InsertText(step *types.Step, stepPart string) string {
	mode := e.idx.Mode()
	source := step.Pattern
	if mode == pattern.ModePattern {
		source = strings.TrimSuffix(strings.TrimPrefix(step.Pattern, "^"), "$")
	}

	res := source
	tokens := e.idx.Compiler().Tokens(source)
	for i := range tokens {
		r, err := regexp.Compile("^" + strings.Join(tokens[:i+1], " "))
		if err != nil {
			continue
		}
		if !r.MatchString(stepPart) {
			res = strings.Join(tokens[i:], " ")
			break
		}
	}

	res = fragmentSimplifier.Replace(res)

	if e.opts.SmartSnippets {
		n := 0
		res = placeholderPattern.ReplaceAllStringFunc(res, func(string) string {
			n++
			return "${" + strconv.Itoa(n) + ":}"
		})
	} else {
		res = quotedClassPattern.ReplaceAllString(res, `""`)
		if mode == pattern.ModeLiteral {
			// parameter slots are left empty for the user to fill
			res = placeholderPattern.ReplaceAllString(res, "")
		}
	}

	if mode == pattern.ModeLiteral {
		res = strings.ReplaceAll(res, `\`, "")
		res = strings.TrimPrefix(res, "^")
		res = strings.TrimSuffix(res, "$")
	}
	return res
}

package pattern

import (
	"regexp"
	"strings"
)

var (
	// (a|b|c) or (?:a|b) with no nested parentheses
	alternationGroupPattern = regexp.MustCompile(`\([^)(]+\|[^()]+\)`)

	bodySuffixPattern = regexp.MustCompile(`\{.*`)
)

// Split cuts text into whitespace-delimited segments. A parenthesized run is
// kept in one segment even when it contains spaces; nesting is tracked with
// a depth counter.
func Split(text string) []string {
	var (
		parts []string
		cur   strings.Builder
		depth int
	)
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case depth > 0:
			if ch == '(' {
				depth++
			} else if ch == ')' {
				depth--
			}
			cur.WriteByte(ch)
		case ch == ' ':
			parts = append(parts, cur.String())
			cur.Reset()
		case ch == '(':
			depth = 1
			cur.WriteByte(ch)
		default:
			cur.WriteByte(ch)
		}
	}
	return append(parts, cur.String())
}

// PartialText builds a regex that matches any whitespace-delimited prefix of
// the sequence parts: each segment may be replaced by end of input, and
// segments are joined by a space or end of input.
func PartialText(parts []string) string {
	wrapped := make([]string, len(parts))
	for i, p := range parts {
		wrapped[i] = "(" + p + "|$)"
	}
	return "^" + strings.Join(wrapped, "( |$)")
}

// Invariants expands every alternation group of raw into one literal
// variant per option. Groups are expanded left to right; each substitution
// is re-scanned, so several groups yield the cross product. Text without an
// unnested (x|y) group is returned as is.
func Invariants(raw string) []string {
	var (
		done []string
		work = []string{raw}
	)
	for len(work) > 0 {
		step := work[0]
		work = work[1:]

		group := alternationGroupPattern.FindString(step)
		if group == "" {
			done = append(done, step)
			continue
		}

		inner := strings.TrimPrefix(group[1:len(group)-1], "?:")
		var expanded []string
		for _, option := range strings.Split(inner, "|") {
			expanded = append(expanded, strings.Replace(step, group, option, 1))
		}
		// depth-first keeps the variants in source order
		work = append(expanded, work...)
	}
	return done
}

// DisplayText returns the text shown for a pattern: backslashes go, and so
// do a leading ^ and a trailing $. Literal patterns are treated the same
// way, so an escaped "\{" reads as "{".
func DisplayText(raw string) string {
	text := strings.ReplaceAll(raw, `\`, "")
	text = strings.TrimPrefix(text, "^")
	return strings.TrimSuffix(text, "$")
}

// DefinitionText strips the function body from a definition line and trims it
func DefinitionText(line string) string {
	return strings.TrimSpace(bodySuffixPattern.ReplaceAllString(line, ""))
}

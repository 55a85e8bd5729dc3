package gherkin

import (
	"regexp"
	"strings"
)

var (
	// Examples:
	// Examples: valid logins
	examplesPattern = regexp.MustCompile(`^\s*Examples:`)

	// <name>
	placeholderPattern = regexp.MustCompile(`<([^<>]*)>`)

	cellSeparator = regexp.MustCompile(`\s*\|\s*`)
)

// Bindings maps Scenario Outline placeholder names to example values
type Bindings map[string]string

// HasPlaceholders reports whether line contains any <name> token
func HasPlaceholders(line string) bool {
	return placeholderPattern.MatchString(line)
}

// FindBindings reads the nearest Examples table after lineIndex. The header
// row gives the names and the first data row the values. Empty cells are
// left unbound.
func FindBindings(lines []string, lineIndex int) Bindings {
	if lineIndex < 0 {
		lineIndex = 0
	}
	for i := lineIndex; i < len(lines); i++ {
		if !examplesPattern.MatchString(lines[i]) {
			continue
		}

		rows := tableRows(lines, i+1, 2)
		if len(rows) < 2 {
			return nil
		}

		names, values := rows[0], rows[1]
		b := make(Bindings, len(names))
		for j, name := range names {
			if j < len(values) && values[j] != "" {
				b[name] = values[j]
			}
		}
		return b
	}
	return nil
}

// tableRows collects up to limit table rows starting at from. Blank lines,
// comments and tags may sit between rows; anything else ends the table.
func tableRows(lines []string, from, limit int) [][]string {
	var rows [][]string
	for i := from; i < len(lines) && len(rows) < limit; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if isSkippable(trimmed) {
			continue
		}
		if !strings.HasPrefix(trimmed, "|") {
			break
		}
		rows = append(rows, splitRow(trimmed))
	}
	return rows
}

// splitRow turns "| a | b |" into ["a", "b"]
func splitRow(row string) []string {
	cells := cellSeparator.Split(row, -1)
	if len(cells) < 2 {
		return nil
	}
	return cells[1 : len(cells)-1]
}

// Substitute replaces each bound <name> in line with its value, wrapped in
// double quotes when quoted is set. Unbound placeholders are kept.
func Substitute(line string, b Bindings, quoted bool) string {
	return placeholderPattern.ReplaceAllStringFunc(line, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := b[name]
		if !ok {
			return token
		}
		if quoted {
			return `"` + value + `"`
		}
		return value
	})
}

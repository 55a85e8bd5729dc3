// Package gherkin knows the step keywords of feature files, how to read a
// step line, which category a continuation line belongs to, and how
// Scenario Outline placeholders are bound from an Examples table.
package gherkin

import (
	"regexp"
	"strings"
)

// Given I open the door
// \tAnd I close it
var stepLinePattern = regexp.MustCompile(`^(\s*)(` + Alternation() + `)(\s+)(.*)`)

var newlinePattern = regexp.MustCompile(`\r?\n`)

// Line is a step line split into its parts
type Line struct {
	Indent  string // leading whitespace
	Keyword string // Given, When, And, ...
	Space   string // whitespace between keyword and text
	Text    string // step text after the keyword
}

// ParseLine matches a Gherkin-prefixed step line
func ParseLine(line string) (Line, bool) {
	m := stepLinePattern.FindStringSubmatch(line)
	if m == nil {
		return Line{}, false
	}
	return Line{
		Indent:  m[1],
		Keyword: m[2],
		Space:   m[3],
		Text:    m[4],
	}, true
}

// Category returns the keyword category of the line
func (l Line) Category() Category {
	return Classify(l.Keyword)
}

// SplitLines splits document text on \n or \r\n
func SplitLines(text string) []string {
	return newlinePattern.Split(text, -1)
}

// ResolveCategory returns the effective category of keyword on lineIndex.
// Primary keywords resolve to themselves. Continuations take the category of
// the nearest preceding primary step line, or Other if there is none.
func ResolveCategory(keyword string, lineIndex int, lines []string) Category {
	c := Classify(keyword)
	if !c.IsContinuation() {
		return c
	}

	if lineIndex > len(lines) {
		lineIndex = len(lines)
	}
	for i := lineIndex - 1; i >= 0; i-- {
		prev, ok := ParseLine(lines[i])
		if !ok {
			continue
		}
		if pc := prev.Category(); pc.IsPrimary() {
			return pc
		}
	}
	return Other
}

func isSkippable(trimmed string) bool {
	return trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "@")
}

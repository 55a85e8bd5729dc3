package gherkin

import (
	"regexp"
	"sort"
	"strings"
)

// Category classifies a step keyword
type Category int

const (
	Other Category = iota
	Given
	When
	Then
	And
	But
)

func (c Category) String() string {
	switch c {
	case Given:
		return "Given"
	case When:
		return "When"
	case Then:
		return "Then"
	case And:
		return "And"
	case But:
		return "But"
	default:
		return "Other"
	}
}

// IsPrimary reports whether c is Given, When or Then
func (c Category) IsPrimary() bool {
	return c == Given || c == When || c == Then
}

// IsContinuation reports whether c continues the previous primary keyword
func (c Category) IsContinuation() bool {
	return c == And || c == But
}

// keywords maps every recognized step keyword (lowercased) to its category.
// English first, then the synonyms accepted in feature files.
var keywords = map[string]Category{
	"given": Given,
	"when":  When,
	"then":  Then,
	"and":   And,
	"but":   But,
	"*":     And,

	// de
	"angenommen":  Given,
	"gegeben sei": Given,
	"wenn":        When,
	"dann":        Then,
	"und":         And,
	"aber":        But,

	// fr
	"soit":        Given,
	"etant donné": Given,
	"étant donné": Given,
	"quand":       When,
	"lorsque":     When,
	"alors":       Then,
	"et":          And,
	"mais":        But,

	// es
	"dado":     Given,
	"dada":     Given,
	"cuando":   When,
	"entonces": Then,
	"y":        And,
	"pero":     But,
}

// Keywords returns all step keywords in the spelling used in feature files,
// longest first so that regex alternation prefers the longest keyword.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for k := range keywords {
		words = append(words, capitalize(k))
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return words
}

// Alternation returns a regex alternation of all step keywords
func Alternation() string {
	words := Keywords()
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// Classify returns the category of a keyword, ignoring case.
// Unknown words are Other.
func Classify(word string) Category {
	if c, ok := keywords[strings.ToLower(strings.TrimSpace(word))]; ok {
		return c
	}
	return Other
}

// ForDefinition returns the category a step definition gets from its
// governing keyword. Continuations and plain step-definition calls are Other.
func ForDefinition(word string) Category {
	c := Classify(word)
	if c.IsPrimary() {
		return c
	}
	return Other
}

func capitalize(s string) string {
	if s == "" || s == "*" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

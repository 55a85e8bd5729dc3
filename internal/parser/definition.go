package parser

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultKeywordPart = `Given|When|Then|And|But|defineStep|Step|StepDefinition`
	defaultDelimiters  = "/\"'`"
)

// Given(/^I open the door$/, function () {
// When('I type {string}', async (text) => {
// ctx.Step(`^I eat (\d+)$`, iEat)
//
// The pattern must be closed by the character that opened it. RE2 has no
// backreferences, so each delimiter gets its own alternative and named group.
func buildDefinitionPattern(keywordPart, delimiters string) (*regexp.Regexp, []string, error) {
	if keywordPart == "" {
		keywordPart = defaultKeywordPart
	}
	if delimiters == "" {
		delimiters = defaultDelimiters
	}

	var (
		alts   []string
		groups []string
		seen   = make(map[rune]bool)
	)
	for _, d := range delimiters {
		if seen[d] {
			continue
		}
		seen[d] = true

		name := fmt.Sprintf("d%d", len(groups))
		q := regexp.QuoteMeta(string(d))
		alts = append(alts, q+`(?P<`+name+`>.*?)`+q+`\s*,`)
		groups = append(groups, name)
	}

	re, err := regexp.Compile(`(?i)\b(?P<keyword>` + keywordPart + `)\(\s*(?:` + strings.Join(alts, "|") + `)`)
	if err != nil {
		return nil, nil, fmt.Errorf("definition line pattern: %w", err)
	}
	return re, groups, nil
}

// DefinitionMatcher finds step definitions written as a call whose first
// argument is the delimited step pattern
type DefinitionMatcher struct {
	pattern *regexp.Regexp
	keyword int
	groups  []int
}

// NewDefinitionMatcher builds a matcher for the given keyword regex part and
// delimiter characters. Empty values select the defaults.
func NewDefinitionMatcher(keywordPart, delimiters string) (*DefinitionMatcher, error) {
	re, names, err := buildDefinitionPattern(keywordPart, delimiters)
	if err != nil {
		return nil, err
	}

	m := &DefinitionMatcher{
		pattern: re,
		keyword: re.SubexpIndex("keyword"),
	}
	for _, name := range names {
		m.groups = append(m.groups, re.SubexpIndex(name))
	}
	return m, nil
}

func (m *DefinitionMatcher) Name() string  { return "definition" }
func (m *DefinitionMatcher) Priority() int { return 100 }

func (m *DefinitionMatcher) Match(line string, ctx *ParseContext) *MatchResult {
	loc := m.pattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil
	}

	for _, g := range m.groups {
		start, end := loc[2*g], loc[2*g+1]
		if start < 0 {
			continue
		}
		return &MatchResult{
			Keyword: line[loc[2*m.keyword]:loc[2*m.keyword+1]],
			Pattern: line[start:end],
		}
	}
	return nil
}

// @Given("^I have (\\d+) cukes$")
var annotationPattern = regexp.MustCompile(`@(Given|When|Then|And|But)\(\s*"((?:[^"\\]|\\.)*)"\s*\)`)

var javaUnescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)

// AnnotationMatcher finds Cucumber-JVM style annotated step definitions
type AnnotationMatcher struct{}

func (m *AnnotationMatcher) Name() string  { return "annotation" }
func (m *AnnotationMatcher) Priority() int { return 50 }

func (m *AnnotationMatcher) Match(line string, ctx *ParseContext) *MatchResult {
	match := annotationPattern.FindStringSubmatch(line)
	if match == nil {
		return nil
	}
	return &MatchResult{
		Keyword: match[1],
		Pattern: javaUnescaper.Replace(match[2]),
	}
}

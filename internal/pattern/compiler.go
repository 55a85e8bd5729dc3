// Package pattern compiles step-definition patterns into regular expressions.
//
// A pattern is either literal text with Cucumber-expression parameters
// (ModeLiteral) or text that is already partly a regular expression
// (ModePattern). Both go through the same rewrite pipeline:
//
//  1. user aliases are substituted verbatim
//  2. known parameters ({int}, {string}, ...) become regex fragments
//  3. optional text "(s)" becomes "(s)?"
//  4. alternative text "a/b/c" becomes "(a|b|c)"
//  5. any other {name} becomes ".*"
//  6. in literal mode, everything not injected by 2-5 is escaped
//  7. literal patterns are anchored with ^ and $
//
// Fragments injected by steps 2-5 are swapped for sentinels before step 6
// and restored after it, so escaping never touches them.
package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Mode selects how the text of a pattern is interpreted
type Mode int

const (
	// ModePattern treats the definition as regular-expression text
	ModePattern Mode = iota
	// ModeLiteral treats the definition as plain text with parameters
	ModeLiteral
)

// Alias is a user-configured textual substitution applied before anything else
type Alias struct {
	Parameter string
	Value     string
}

// specialParameter maps a placeholder token to its regex fragment
type specialParameter struct {
	token    *regexp.Regexp
	fragment string
}

// Order matters: each entry is applied to the whole text before the next.
var specialParameters = []specialParameter{
	// Ruby interpolation #{...}
	{regexp.MustCompile(`#\{.*?\}`), `.*`},
	{regexp.MustCompile(`\{float\}`), `-?\d*\.?\d+`},
	{regexp.MustCompile(`\{int\}`), `-?\d+`},
	{regexp.MustCompile(`\{stringInDoubleQuotes\}`), `"[^"]+"`},
	{regexp.MustCompile(`\{word\}`), `[^\s]+`},
	{regexp.MustCompile(`\{string\}`), `("[^"]*"|'[^']*')`},
	{regexp.MustCompile(`\{\}`), `.*`},
}

var (
	// (s) in "cucumber(s)"
	optionalTextPattern = regexp.MustCompile(`\(([a-z]+)\)`)

	// a/b/c
	alternativeTextPattern = regexp.MustCompile(`[a-zA-Z]+(?:/[a-zA-Z]+)+`)

	// {name}, the caller decides whether it is a custom parameter
	customParameterPattern = regexp.MustCompile(`\{([^{}]*)\}`)

	sentinelPattern = regexp.MustCompile("\x00(\\d+)\x00")
)

// CompileError reports a pattern whose synthesized regex does not compile
type CompileError struct {
	Pattern string
	Regex   string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("step pattern %q: invalid regex %q: %v", e.Pattern, e.Regex, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compiled is the result of compiling one pattern
type Compiled struct {
	Full    *regexp.Regexp
	Partial *regexp.Regexp
	// PartialFallback is set when the partial regex did not compile and
	// Full is used in its place
	PartialFallback bool
}

// Compiler turns raw patterns into regexes
type Compiler struct {
	Mode    Mode
	Aliases []Alias
}

// Compile builds the full and partial regexes for raw.
// It returns a *CompileError if the full regex is invalid.
func (c *Compiler) Compile(raw string) (*Compiled, error) {
	text := c.RegexText(raw)
	full, err := regexp.Compile(text)
	if err != nil {
		return nil, &CompileError{Pattern: raw, Regex: text, Err: err}
	}

	compiled := &Compiled{Full: full}
	partial, err := regexp.Compile(PartialText(Split(text)))
	if err != nil {
		compiled.Partial = full
		compiled.PartialFallback = true
	} else {
		compiled.Partial = partial
	}
	return compiled, nil
}

// RegexText returns the full-match regex text for raw
func (c *Compiler) RegexText(raw string) string {
	p := &protector{}

	text := c.applyAliases(raw)

	for _, sp := range specialParameters {
		fragment := sp.fragment
		text = sp.token.ReplaceAllStringFunc(text, func(string) string {
			return p.protect(fragment)
		})
	}

	text = optionalTextPattern.ReplaceAllStringFunc(text, func(m string) string {
		return p.protect(m + "?")
	})

	text = alternativeTextPattern.ReplaceAllStringFunc(text, func(m string) string {
		return p.protect("(" + strings.ReplaceAll(m, "/", "|") + ")")
	})

	text = replaceCustomParameters(text, p)

	if c.Mode == ModeLiteral {
		text = regexp.QuoteMeta(text)
		return "^" + p.restore(text) + "$"
	}

	return p.restore(text)
}

// Tokens returns the whitespace-delimited segments of the compiled regex
// text of raw, keeping parenthesized groups whole
func (c *Compiler) Tokens(raw string) []string {
	return Split(c.RegexText(raw))
}

func (c *Compiler) applyAliases(text string) string {
	for _, a := range c.Aliases {
		if a.Parameter == "" {
			continue
		}
		text = strings.ReplaceAll(text, a.Parameter, a.Value)
	}
	return text
}

// replaceCustomParameters turns {name} into ".*" unless the brace is escaped
// or the content looks like a quantifier ({2}, {1,3}, {,4}).
func replaceCustomParameters(text string, p *protector) string {
	var b strings.Builder
	last := 0
	for _, loc := range customParameterPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && text[start-1] == '\\' {
			continue
		}
		if inner := text[loc[2]:loc[3]]; inner != "" && (isDigit(inner[0]) || inner[0] == ',') {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(p.protect(".*"))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// protector swaps regex fragments for sentinels that survive escaping.
// A sentinel is NUL, the fragment index, NUL. QuoteMeta leaves all of
// those bytes alone.
type protector struct {
	fragments []string
}

func (p *protector) protect(fragment string) string {
	p.fragments = append(p.fragments, fragment)
	return "\x00" + strconv.Itoa(len(p.fragments)-1) + "\x00"
}

func (p *protector) restore(text string) string {
	return sentinelPattern.ReplaceAllStringFunc(text, func(s string) string {
		i, err := strconv.Atoi(s[1 : len(s)-1])
		if err != nil || i >= len(p.fragments) {
			return s
		}
		return p.fragments[i]
	})
}

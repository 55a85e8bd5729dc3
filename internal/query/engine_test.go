package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
	"github.com/jarredhawkins/gherkin-lsp/internal/index"
	"github.com/jarredhawkins/gherkin-lsp/internal/pattern"
)

const stepsJS = `Given(/^I open the door$/, function () {});
Given(/^I open the window$/, function () {});
Given(/^I close the door$/, function () {});
When('I type {string}', function (s) {});
Then(/^I see (\d+) items$/, function (n) {});
Then(/^I say "([^"]*)"$/, function (w) {});
`

func newTestEngine(t *testing.T, steps string, idxOpts index.Options, opts Options) (*Engine, *index.Index) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "steps.js"), []byte(steps), 0o644))

	idx, err := index.New(dir, idxOpts)
	require.NoError(t, err)
	_, err = idx.Build(context.Background(), []string{"*.js"})
	require.NoError(t, err)

	return New(idx, opts), idx
}

func TestComplete_RanksByUsageThenLabel(t *testing.T) {
	e, idx := newTestEngine(t, stepsJS, index.Options{}, Options{})
	line := "    Given I open the "
	lines := []string{"Feature: doors", "  Scenario: open", line}

	candidates := e.Complete(line, 2, lines)
	require.Len(t, candidates, 2)
	assert.Equal(t, "I open the door", candidates[0].Label)
	assert.Equal(t, "I open the window", candidates[1].Label)
	assert.Equal(t, "99999_I open the door", candidates[0].SortText)
	assert.Equal(t, "door", candidates[0].InsertText)
	assert.Equal(t, "window", candidates[1].InsertText)

	window := idx.FindByText("I open the window")
	require.NotNil(t, window)
	e.ResolveAcceptance(window.ID)

	candidates = e.Complete(line, 2, lines)
	require.Len(t, candidates, 2)
	assert.Equal(t, "I open the window", candidates[0].Label)
	assert.Equal(t, "99998_I open the window", candidates[0].SortText)
}

func TestComplete_IgnoresIncompleteLastWord(t *testing.T) {
	e, _ := newTestEngine(t, stepsJS, index.Options{}, Options{})

	candidates := e.Complete("Given I open the wi", 0, []string{"Given I open the wi"})
	require.Len(t, candidates, 2)
}

func TestComplete_NoCandidates(t *testing.T) {
	e, _ := newTestEngine(t, stepsJS, index.Options{}, Options{})

	assert.Nil(t, e.Complete("Given I fly to the ", 0, nil))
	assert.Nil(t, e.Complete("Feature: nothing here", 0, nil))
}

func TestComplete_Strict(t *testing.T) {
	e, _ := newTestEngine(t, stepsJS, index.Options{}, Options{StrictCompletion: true})
	lines := []string{"When I type \"a\"", "And I "}

	candidates := e.Complete(lines[1], 1, lines)
	require.Len(t, candidates, 1)
	assert.Equal(t, "I type {string}", candidates[0].Label)

	loose, _ := newTestEngine(t, stepsJS, index.Options{}, Options{})
	assert.Len(t, loose.Complete(lines[1], 1, lines), 6)
}

func TestValidate(t *testing.T) {
	e, _ := newTestEngine(t, stepsJS, index.Options{}, Options{})

	line := "    Given I fly   "
	d := e.Validate(line, 3, []string{"", "", "", line})
	require.NotNil(t, d)
	assert.Equal(t, 3, d.Line)
	assert.Equal(t, 4, d.StartChar)
	assert.Equal(t, len("    Given I fly"), d.EndChar)
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, `Was unable to find step for "Given I fly"`, d.Message)

	assert.Nil(t, e.Validate("  Given I open the door", 0, nil))
	assert.Nil(t, e.Validate("  | a | b |", 0, nil))
	assert.Nil(t, e.Validate("Scenario: open", 0, nil))
}

func TestValidate_Strict(t *testing.T) {
	lines := []string{"Given I open the door", `And I type "x"`}

	strict, _ := newTestEngine(t, stepsJS, index.Options{}, Options{StrictValidation: true})
	assert.NotNil(t, strict.Validate(lines[1], 1, lines))
	assert.Nil(t, strict.Validate(lines[0], 0, lines))

	loose, _ := newTestEngine(t, stepsJS, index.Options{}, Options{})
	assert.Nil(t, loose.Validate(lines[1], 1, lines))
}

func TestValidate_OutlinePlaceholders(t *testing.T) {
	e, _ := newTestEngine(t, stepsJS, index.Options{}, Options{})
	lines := gherkin.SplitLines(`Scenario Outline: say
  Then I say <word>
  And I see <n> items

  Examples:
    | word | n |
    | hi   | 2 |`)

	assert.Nil(t, e.Validate(lines[1], 1, lines))
	assert.Nil(t, e.Validate(lines[2], 2, lines))
}

func TestFindDefinition(t *testing.T) {
	e, _ := newTestEngine(t, stepsJS, index.Options{}, Options{})

	loc := e.FindDefinition("When I type 'hello'", 0, nil)
	require.NotNil(t, loc)
	assert.Equal(t, 3, loc.Line)
	assert.Equal(t, "steps.js", filepath.Base(loc.Path))

	assert.Nil(t, e.FindDefinition("When I fly", 0, nil))
	assert.Nil(t, e.FindDefinition("# comment", 0, nil))
}

func TestInsertText(t *testing.T) {
	tests := []struct {
		name     string
		steps    string
		mode     pattern.Mode
		smart    bool
		text     string
		stepPart string
		want     string
	}{
		{
			name:     "regex placeholder as snippet",
			steps:    stepsJS,
			smart:    true,
			text:     "I see 3 items",
			stepPart: "I see ",
			want:     "${1:} items",
		},
		{
			name:     "regex placeholder kept",
			steps:    stepsJS,
			text:     "I see 3 items",
			stepPart: "I see ",
			want:     `(\d+) items`,
		},
		{
			name:     "quoted group as snippet",
			steps:    stepsJS,
			smart:    true,
			text:     `I say "x"`,
			stepPart: "I say ",
			want:     `"${1:}"`,
		},
		{
			name:     "nothing typed",
			steps:    stepsJS,
			text:     "I open the door",
			stepPart: "",
			want:     "I open the door",
		},
		{
			name:     "everything typed",
			steps:    stepsJS,
			text:     "I open the door",
			stepPart: "I open the door ",
			want:     "I open the door",
		},
		{
			name:     "literal string parameter",
			steps:    "When('I type {string}', function (s) {});\n",
			mode:     pattern.ModeLiteral,
			text:     `I type "x"`,
			stepPart: "I type ",
			want:     `""`,
		},
		{
			name:     "literal string parameter as snippet",
			steps:    "When('I type {string}', function (s) {});\n",
			mode:     pattern.ModeLiteral,
			smart:    true,
			text:     `I type "x"`,
			stepPart: "I type ",
			want:     `"${1:}"`,
		},
		{
			name:     "literal int parameter as snippet",
			steps:    "When('I pay {int} dollars', function (n) {});\n",
			mode:     pattern.ModeLiteral,
			smart:    true,
			text:     "I pay 5 dollars",
			stepPart: "I ",
			want:     "pay ${1:} dollars",
		},
		{
			name:     "literal int parameter leaves an empty slot",
			steps:    "When('I have {int} apples', function (n) {});\n",
			mode:     pattern.ModeLiteral,
			text:     "I have 3 apples",
			stepPart: "I ",
			want:     "have  apples",
		},
		{
			name:     "literal word parameter leaves an empty slot",
			steps:    "When('I am {word}', function (w) {});\n",
			mode:     pattern.ModeLiteral,
			text:     "I am here",
			stepPart: "I ",
			want:     "am ",
		},
		{
			name:     "literal text is unescaped",
			steps:    "When('I pay $5.00', function () {});\n",
			mode:     pattern.ModeLiteral,
			text:     "I pay $5.00",
			stepPart: "I ",
			want:     "pay $5.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, idx := newTestEngine(t, tt.steps, index.Options{Mode: tt.mode}, Options{SmartSnippets: tt.smart})
			step := idx.FindByText(tt.text)
			require.NotNil(t, step)
			assert.Equal(t, tt.want, e.InsertText(step, tt.stepPart))
		})
	}
}

func TestSortText(t *testing.T) {
	assert.Equal(t, "99999_a", SortText(0, "a"))
	assert.Equal(t, "99989_a", SortText(10, "a"))
	assert.Equal(t, "00000_a", SortText(200000, "a"))
	assert.Less(t, SortText(3, "z"), SortText(1, "a"))
}

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionMatcher(t *testing.T) {
	m, err := NewDefinitionMatcher("", "")
	require.NoError(t, err)

	tests := []struct {
		name        string
		line        string
		wantKeyword string
		wantPattern string
		wantNil     bool
	}{
		{
			name:        "regex literal",
			line:        "Given(/^I open the door$/, function () {",
			wantKeyword: "Given",
			wantPattern: "^I open the door$",
		},
		{
			name:        "single quoted expression",
			line:        "When('I type {string}', async (text) => {",
			wantKeyword: "When",
			wantPattern: "I type {string}",
		},
		{
			name:        "backtick",
			line:        "\tctx.Step(`^I eat (\\d+)$`, iEat)",
			wantKeyword: "Step",
			wantPattern: `^I eat (\d+)$`,
		},
		{
			name:        "defineStep",
			line:        `  defineStep("I wait", () => {})`,
			wantKeyword: "defineStep",
			wantPattern: "I wait",
		},
		{
			name:        "space before comma",
			line:        "this.Then(/^done$/ , cb)",
			wantKeyword: "Then",
			wantPattern: "^done$",
		},
		{
			name:        "escaped delimiter inside regex",
			line:        `Given(/^I go to a\/b$/, fn)`,
			wantKeyword: "Given",
			wantPattern: `^I go to a\/b$`,
		},
		{
			name:        "case insensitive keyword",
			line:        `given("x", fn)`,
			wantKeyword: "given",
			wantPattern: "x",
		},
		{
			name:    "no parameter list",
			line:    "Given(/^x$/)",
			wantNil: true,
		},
		{
			name:    "keyword inside identifier",
			line:    `expand("a", b)`,
			wantNil: true,
		},
		{
			name:    "mismatched delimiters",
			line:    `Given("x', fn)`,
			wantNil: true,
		},
		{
			name:    "plain code",
			line:    "const x = 1;",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := m.Match(tt.line, &ParseContext{})
			if tt.wantNil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.wantKeyword, result.Keyword)
			assert.Equal(t, tt.wantPattern, result.Pattern)
		})
	}
}

func TestDefinitionMatcher_CustomDelimiters(t *testing.T) {
	m, err := NewDefinitionMatcher("", "'")
	require.NoError(t, err)

	assert.Nil(t, m.Match(`Given("x", fn)`, &ParseContext{}))
	require.NotNil(t, m.Match(`Given('x', fn)`, &ParseContext{}))
}

func TestDefinitionMatcher_CustomKeywords(t *testing.T) {
	m, err := NewDefinitionMatcher(`Angenommen|Wenn`, "")
	require.NoError(t, err)

	result := m.Match(`Wenn("ich warte", fn)`, &ParseContext{})
	require.NotNil(t, result)
	assert.Equal(t, "Wenn", result.Keyword)
	assert.Nil(t, m.Match(`Given("x", fn)`, &ParseContext{}))
}

func TestDefinitionMatcher_InvalidKeywordPart(t *testing.T) {
	_, err := NewDefinitionMatcher(`(Given`, "")
	assert.Error(t, err)
}

func TestAnnotationMatcher(t *testing.T) {
	m := &AnnotationMatcher{}

	result := m.Match(`    @Given("^I have (\\d+) cukes$")`, &ParseContext{})
	require.NotNil(t, result)
	assert.Equal(t, "Given", result.Keyword)
	assert.Equal(t, `^I have (\d+) cukes$`, result.Pattern)

	result = m.Match(`@Then("I say \"hi\"")`, &ParseContext{})
	require.NotNil(t, result)
	assert.Equal(t, `I say "hi"`, result.Pattern)

	assert.Nil(t, m.Match(`@Override`, &ParseContext{}))
}

func TestRegistry_PriorityOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterDefaults(r, Options{}))

	matchers := r.Matchers()
	require.Len(t, matchers, 2)
	assert.Equal(t, "definition", matchers[0].Name())
	assert.Equal(t, "annotation", matchers[1].Name())
}

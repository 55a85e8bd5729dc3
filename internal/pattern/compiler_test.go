package pattern

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func literal(aliases ...Alias) *Compiler {
	return &Compiler{Mode: ModeLiteral, Aliases: aliases}
}

func regexMode(aliases ...Alias) *Compiler {
	return &Compiler{Mode: ModePattern, Aliases: aliases}
}

func TestCompile_LiteralRoundTrip(t *testing.T) {
	c, err := literal().Compile("I open the door")
	require.NoError(t, err)

	assert.True(t, c.Full.MatchString("I open the door"))
	assert.False(t, c.Full.MatchString("I open the doorway"))
	assert.False(t, c.Full.MatchString("so I open the door"))
}

func TestCompile_LiteralEscapesMetacharacters(t *testing.T) {
	c, err := literal().Compile("I pay $5.00 [now] + tip?")
	require.NoError(t, err)

	assert.True(t, c.Full.MatchString("I pay $5.00 [now] + tip?"))
	assert.False(t, c.Full.MatchString("I pay $5x00 [now] + tip?"))
}

func TestCompile_SpecialParameters(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		match   []string
		noMatch []string
	}{
		{
			name:    "int",
			raw:     "I have {int} cukes",
			match:   []string{"I have 42 cukes", "I have -3 cukes"},
			noMatch: []string{"I have many cukes", "I have 4.2 cukes"},
		},
		{
			name:    "float",
			raw:     "it weighs {float} kg",
			match:   []string{"it weighs 4.2 kg", "it weighs -.5 kg", "it weighs 3 kg"},
			noMatch: []string{"it weighs x kg"},
		},
		{
			name:    "string either quote",
			raw:     "I type {string}",
			match:   []string{`I type "hello world"`, `I type 'hi'`, `I type ""`},
			noMatch: []string{"I type hello", `I type "mixed'`},
		},
		{
			name:    "string in double quotes",
			raw:     "I see {stringInDoubleQuotes}",
			match:   []string{`I see "it"`},
			noMatch: []string{`I see 'it'`, `I see ""`},
		},
		{
			name:    "word",
			raw:     "I am {word}",
			match:   []string{"I am here"},
			noMatch: []string{"I am over there"},
		},
		{
			name:  "anonymous",
			raw:   "anything {} goes",
			match: []string{"anything at all goes", "anything  goes"},
		},
		{
			name:  "ruby interpolation",
			raw:   "I visit #{page} now",
			match: []string{"I visit the home page now"},
		},
		{
			name:    "custom parameter",
			raw:     "I pick {color} paint",
			match:   []string{"I pick red paint"},
			noMatch: []string{"I pick red ink"},
		},
	}

	for _, mode := range []*Compiler{literal(), regexMode()} {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c, err := mode.Compile(tt.raw)
				require.NoError(t, err)
				for _, s := range tt.match {
					assert.True(t, c.Full.MatchString(s), "%q should match %q", c.Full, s)
				}
				if mode.Mode == ModePattern {
					// unanchored pattern mode may match inside longer text
					return
				}
				for _, s := range tt.noMatch {
					assert.False(t, c.Full.MatchString(s), "%q should not match %q", c.Full, s)
				}
			})
		}
	}
}

func TestCompile_OptionalAndAlternativeText(t *testing.T) {
	for _, c := range []*Compiler{literal(), regexMode()} {
		compiled, err := c.Compile("I have {int} cucumber(s) in my belly/stomach")
		require.NoError(t, err)

		assert.True(t, compiled.Full.MatchString("I have 1 cucumber in my belly"))
		assert.True(t, compiled.Full.MatchString("I have 2 cucumbers in my stomach"))
	}

	compiled, err := literal().Compile("I have {int} cucumber(s) in my belly/stomach")
	require.NoError(t, err)
	assert.False(t, compiled.Full.MatchString("I have 2 cucumbers in my liver"))
}

func TestCompile_AliasBeforeSpecialParameters(t *testing.T) {
	c, err := literal(Alias{Parameter: "{CSS_SELECTOR}", Value: ".button"}).Compile("click {CSS_SELECTOR}")
	require.NoError(t, err)

	assert.True(t, c.Full.MatchString("click .button"))
	assert.False(t, c.Full.MatchString("click xbutton"))
	assert.False(t, c.Full.MatchString("click anything"))
}

func TestCompile_AliasMayContainParameters(t *testing.T) {
	c, err := literal(Alias{Parameter: "{amount}", Value: "{int} dollars"}).Compile("I pay {amount}")
	require.NoError(t, err)

	assert.True(t, c.Full.MatchString("I pay 10 dollars"))
	assert.False(t, c.Full.MatchString("I pay ten dollars"))
}

func TestCompile_PatternModeKeepsRegex(t *testing.T) {
	c, err := regexMode().Compile(`^I have (\d+) items? in "([^"]*)"$`)
	require.NoError(t, err)

	assert.True(t, c.Full.MatchString(`I have 3 items in "cart"`))
	assert.True(t, c.Full.MatchString(`I have 1 item in "bag"`))
	assert.False(t, c.Full.MatchString(`I have x items in "cart"`))
}

func TestCompile_PatternModeKeepsQuantifiers(t *testing.T) {
	c, err := regexMode().Compile(`^code \d{3}$`)
	require.NoError(t, err)

	assert.True(t, c.Full.MatchString("code 123"))
	assert.False(t, c.Full.MatchString("code 12"))
}

func TestCompile_InvalidRegex(t *testing.T) {
	_, err := regexMode().Compile(`I open (the door`)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "I open (the door", ce.Pattern)
}

func TestCompile_PartialFallback(t *testing.T) {
	// a segment that starts with a quantifier is fine after a space but
	// not at the start of its own group
	raw := `^I wait +for it$`
	_, err := regexp.Compile(PartialText(Split(regexMode().RegexText(raw))))
	require.Error(t, err)

	c, err := regexMode().Compile(raw)
	require.NoError(t, err)
	require.True(t, c.Full.MatchString("I wait  for it"))

	assert.True(t, c.PartialFallback)
	assert.Same(t, c.Full, c.Partial)
}

func TestRegexText_InjectedFragmentsAreNotEscaped(t *testing.T) {
	text := literal().RegexText("I have {int} (big) apples")
	assert.Equal(t, `^I have -?\d+ (big)? apples$`, text)
	assert.NotContains(t, text, "\x00")
}

func TestPartialPrefixLaw(t *testing.T) {
	raws := []string{
		"I open the door",
		"the user logs in with a password",
		"I wait for the (slow) spinner to go",
	}

	for _, raw := range raws {
		c, err := literal().Compile(raw)
		require.NoError(t, err)
		require.False(t, c.PartialFallback)

		words := strings.Split(strings.ReplaceAll(raw, "(slow)", "slow"), " ")
		for k := 0; k <= len(words); k++ {
			prefix := strings.Join(words[:k], " ")
			assert.True(t, c.Partial.MatchString(prefix), "%q should match prefix %q", c.Partial, prefix)
			if k > 0 && k < len(words) {
				assert.True(t, c.Partial.MatchString(prefix+" "), "%q should match prefix %q", c.Partial, prefix+" ")
			}
		}
	}
}

func TestPartial_RejectsDivergingText(t *testing.T) {
	c, err := literal().Compile("I open the door")
	require.NoError(t, err)

	assert.True(t, c.Partial.MatchString("I open the "))
	assert.False(t, c.Partial.MatchString("I close the "))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"I open the door", []string{"I", "open", "the", "door"}},
		{"I (a b) go", []string{"I", "(a b)", "go"}},
		{"x (a (b c) d)? y", []string{"x", "(a (b c) d)?", "y"}},
		{"", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text))
		})
	}
}

func TestPartialText(t *testing.T) {
	assert.Equal(t, "^(a|$)( |$)(b|$)", PartialText([]string{"a", "b"}))
	_, err := regexp.Compile(PartialText([]string{"^I", "go$"}))
	assert.NoError(t, err)
}

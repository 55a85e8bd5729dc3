package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
)

const doorsFeature = `Feature: doors
  Scenario: open
    Given I open the door
    And I open the door
    When I type "hello"
    Then nobody knows this step

  Scenario Outline: items
    Then I see <n> items
    And I say <word>

    Examples:
      | n | word |
      | 3 | hi   |
`

func newCountedIndex(t *testing.T) *Index {
	t.Helper()
	idx, _ := newTestIndex(t, map[string]string{
		"steps/steps.js":         stepsJS,
		"features/doors.feature": doorsFeature,
	}, Options{})

	_, err := idx.Build(context.Background(), []string{"steps/**/*.js"})
	require.NoError(t, err)
	require.NoError(t, idx.Recount(context.Background(), []string{"**/*.feature"}))
	return idx
}

func TestRecount(t *testing.T) {
	idx := newCountedIndex(t)

	counts := make(map[string]int)
	for _, step := range idx.Steps() {
		counts[step.Text] = step.Count
		assert.Equal(t, step.Count, idx.Count(step.ID))
	}

	assert.Equal(t, 2, counts["I open the door"])
	assert.Equal(t, 1, counts["I type {string}"])
	assert.Equal(t, 1, counts["I see (d+) items"])
	assert.Equal(t, 1, counts[`I say "([^"]*)"`], "quoted outline value resolves")
	assert.Equal(t, 0, counts["it is done"])
}

func TestRecount_Idempotent(t *testing.T) {
	idx := newCountedIndex(t)

	before := make(map[string]int)
	for _, step := range idx.Steps() {
		before[step.ID] = step.Count
	}

	require.NoError(t, idx.Recount(context.Background(), []string{"**/*.feature"}))
	for _, step := range idx.Steps() {
		assert.Equal(t, before[step.ID], step.Count, step.Text)
	}
}

func TestIncrement(t *testing.T) {
	idx := newCountedIndex(t)
	step := idx.FindByText("it is done")
	require.NotNil(t, step)

	idx.Increment(step.ID)
	assert.Equal(t, 1, idx.Count(step.ID))
	assert.Equal(t, 1, step.Count)

	// counts survive a rebuild until the next recount
	_, err := idx.Build(context.Background(), []string{"steps/**/*.js"})
	require.NoError(t, err)
	rebuilt, ok := idx.Get(step.ID)
	require.True(t, ok)
	assert.Equal(t, 1, rebuilt.Count)

	require.NoError(t, idx.Recount(context.Background(), []string{"**/*.feature"}))
	assert.Equal(t, 0, idx.Count(step.ID))
}

func TestStepLine(t *testing.T) {
	idx := newCountedIndex(t)
	lines := gherkin.SplitLines(doorsFeature)

	line, ok := idx.StepLine(lines[8], 8, lines)
	require.True(t, ok)
	assert.Equal(t, "I see 3 items", line.Text)

	line, ok = idx.StepLine(lines[9], 9, lines)
	require.True(t, ok)
	assert.Equal(t, `I say "hi"`, line.Text)

	line, ok = idx.StepLine(lines[2], 2, lines)
	require.True(t, ok)
	assert.Equal(t, "Given", line.Keyword)

	_, ok = idx.StepLine(lines[0], 0, lines)
	assert.False(t, ok)
}

package workspace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarredhawkins/gherkin-lsp/internal/config"
)

const doorSteps = `Given(/^I open the door$/, function() {});
`

const doorFeature = `Feature: doors
  Scenario: twice
    Given I open the door
    And I open the door
`

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestOpen_Defaults(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"features/step_definitions/doors.js": doorSteps,
	})

	ws, err := Open(root, nil)
	require.NoError(t, err)
	assert.Nil(t, ws.Engine(), "nothing is indexed before the first rebuild")
	assert.Empty(t, ws.SettingsPath())

	require.NoError(t, ws.Rebuild(context.Background()))
	require.NotNil(t, ws.Engine())
	assert.Equal(t, 1, ws.Index().Len())
	assert.Empty(t, ws.Warnings())
}

func TestOpen_SettingsFileAndOverrides(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gherkin-lsp.toml": `steps = ["lib/**/*.js"]`,
		"lib/doors.js":      doorSteps,
	})

	ws, err := Open(root, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".gherkin-lsp.toml"), ws.SettingsPath())
	assert.Equal(t, []string{"lib/**/*.js"}, ws.Settings().Steps)

	ws, err = Open(root, json.RawMessage(`{"smartSnippets": true}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/**/*.js"}, ws.Settings().Steps)
	assert.True(t, ws.Settings().SmartSnippets)
}

func TestOpen_InvalidOverrides(t *testing.T) {
	_, err := Open(t.TempDir(), json.RawMessage(`{"steps": []}`))
	require.ErrorIs(t, err, config.ErrNoSteps)

	_, err = Open(t.TempDir(), json.RawMessage(`{"steps": `))
	require.Error(t, err)
}

func TestRebuild_CountsFeatureUsages(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"features/step_definitions/doors.js": doorSteps,
		"features/doors.feature":             doorFeature,
	})

	ws, err := Open(root, nil)
	require.NoError(t, err)
	require.NoError(t, ws.Rebuild(context.Background()))

	step := ws.Index().Steps()[0]
	assert.Equal(t, 2, ws.Index().Count(step.ID))

	// counting again gives the same numbers
	require.NoError(t, ws.Rebuild(context.Background()))
	assert.Equal(t, 2, ws.Index().Count(step.ID))
}

func TestRebuild_ReusesIndexWhileOptionsMatch(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"features/step_definitions/doors.js": doorSteps,
	})

	settings := config.Defaults()
	settings.SyncFeatures = config.FeatureSync{}
	ws := New(root, "", settings)
	ctx := context.Background()

	require.NoError(t, ws.Rebuild(ctx))
	idx := ws.Index()
	id := idx.Steps()[0].ID
	ws.Engine().ResolveAcceptance(id)

	require.NoError(t, ws.Rebuild(ctx))
	assert.Same(t, idx, ws.Index())
	assert.Equal(t, 1, ws.Index().Count(id), "accepted completions survive a rebuild")

	changed := *settings
	changed.PureTextSteps = true
	require.NoError(t, ws.UpdateSettings(ctx, &changed))
	assert.NotSame(t, idx, ws.Index())
	assert.Equal(t, 0, ws.Index().Count(id))
}

func TestUpdateSettings_RejectsInvalid(t *testing.T) {
	ws := New(t.TempDir(), "", config.Defaults())
	err := ws.UpdateSettings(context.Background(), &config.Settings{})
	require.ErrorIs(t, err, config.ErrNoSteps)
	assert.Equal(t, config.Defaults().Steps, ws.Settings().Steps)
}

func TestRebuild_WarnsAboutEmptyGlobs(t *testing.T) {
	settings := config.Defaults()
	settings.Steps = []string{"nowhere/*.js"}
	ws := New(t.TempDir(), "", settings)

	require.NoError(t, ws.Rebuild(context.Background()))
	require.Len(t, ws.Warnings(), 1)
	assert.Equal(t, "nowhere/*.js", ws.Warnings()[0].Pattern)
	assert.Equal(t, 0, ws.Index().Len())
}

func TestReload_PicksUpNewSettingsFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"lib/doors.js": doorSteps,
	})

	ws, err := Open(root, nil)
	require.NoError(t, err)
	require.NoError(t, ws.Rebuild(context.Background()))
	assert.Equal(t, 0, ws.Index().Len())

	writeFiles(t, root, map[string]string{
		".gherkin-lsp.yaml": "steps:\n  - lib/*.js\n",
	})
	require.NoError(t, ws.Reload(context.Background()))
	assert.Equal(t, filepath.Join(root, ".gherkin-lsp.yaml"), ws.SettingsPath())
	assert.Equal(t, 1, ws.Index().Len())
}

func TestAffects(t *testing.T) {
	root := t.TempDir()
	ws := New(root, "", config.Defaults())

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, ".gherkin-lsp.toml"), true},
		{filepath.Join(root, ".vscode", "settings.json"), true},
		{filepath.Join(root, "features", "step_definitions", "steps.js"), true},
		{filepath.Join(root, "features", "step_definitions", "nested", "more.ts"), true},
		{filepath.Join(root, "features", "login.feature"), true},
		{filepath.Join(root, "README.md"), false},
		{filepath.Join(filepath.Dir(root), "elsewhere.feature"), false},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			assert.Equal(t, tt.want, ws.Affects(tt.path))
		})
	}
}

func TestIsFeature(t *testing.T) {
	assert.True(t, IsFeature("/a/b.feature"))
	assert.False(t, IsFeature("/a/b.js"))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/jarredhawkins/gherkin-lsp/internal/config"
	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
	"github.com/jarredhawkins/gherkin-lsp/internal/ui"
	"github.com/jarredhawkins/gherkin-lsp/internal/workspace"
)

// ErrUnmatched is returned by check when a step line has no definition
var ErrUnmatched = errors.New("steps without definition")

var checkCmd = &cobra.Command{
	Use:   "check [feature files...]",
	Short: "Report feature steps that have no step definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return RunCheck(cmd.Context(), cmd.OutOrStdout(), root, args)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// openWorkspace loads the settings of root and indexes its steps
func openWorkspace(ctx context.Context, root string) (*workspace.Workspace, error) {
	ws, err := workspace.Open(root, nil)
	if err != nil {
		return nil, err
	}
	if err := ws.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("indexing steps: %w", err)
	}
	return ws, nil
}

// RunCheck validates files, or every feature file of the project when
// none are given
func RunCheck(ctx context.Context, w io.Writer, root string, files []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ws, err := openWorkspace(ctx, root)
	if err != nil {
		return err
	}
	for _, warning := range ws.Warnings() {
		ui.WarningLine(w, warning.Pattern, warning.Message)
	}

	if len(files) == 0 {
		if files, err = featureFiles(ws); err != nil {
			return err
		}
	}

	engine := ws.Engine()
	missing := 0
	for _, file := range files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(ws.Root(), path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading feature file: %w", err)
		}

		display := path
		if rel, err := filepath.Rel(ws.Root(), path); err == nil {
			display = rel
		}

		lines := gherkin.SplitLines(string(data))
		for i, line := range lines {
			if d := engine.Validate(line, i, lines); d != nil {
				ui.MissingLine(w, display, i+1, d.Message)
				missing++
			}
		}
	}

	ui.CheckSummary(w, len(files), missing)
	if missing > 0 {
		return ErrUnmatched
	}
	return nil
}

func featureFiles(ws *workspace.Workspace) ([]string, error) {
	glob := ws.Settings().SyncFeatures.Pattern()
	if glob == "" {
		glob = config.DefaultFeatureGlob
	}
	files, err := doublestar.Glob(os.DirFS(ws.Root()), filepath.ToSlash(glob), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing feature files: %w", err)
	}
	return files, nil
}

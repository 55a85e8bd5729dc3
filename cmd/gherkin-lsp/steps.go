package main

import (
	"context"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jarredhawkins/gherkin-lsp/internal/ui"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List indexed step definitions, most used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return RunSteps(cmd.Context(), cmd.OutOrStdout(), root)
	},
}

func init() {
	rootCmd.AddCommand(stepsCmd)
}

// RunSteps prints every indexed step with its usage count
func RunSteps(ctx context.Context, w io.Writer, root string) error {
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

	idx := ws.Index()
	steps := idx.Steps()
	sort.SliceStable(steps, func(i, j int) bool {
		ci, cj := idx.Count(steps[i].ID), idx.Count(steps[j].ID)
		if ci != cj {
			return ci > cj
		}
		return steps[i].Text < steps[j].Text
	})

	for _, step := range steps {
		loc := step.Location
		if rel, err := filepath.Rel(ws.Root(), loc.Path); err == nil {
			loc.Path = rel
		}
		ui.StepLine(w, idx.Count(step.ID), step.Text, loc.String())
	}
	ui.StepsSummary(w, len(steps))
	return nil
}

// Package ui renders the command line reports.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	missStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	countStyle = lipgloss.NewStyle().Bold(true).Width(6).Align(lipgloss.Right)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// MissingLine reports a step line with no definition
func MissingLine(w io.Writer, path string, line int, message string) {
	fmt.Fprintf(w, "%s  %s  %s\n", missStyle.Render("miss"), dimStyle.Render(fmt.Sprintf("%s:%d", path, line)), message)
}

// WarningLine reports a configuration problem
func WarningLine(w io.Writer, pattern, message string) {
	fmt.Fprintf(w, "%s  %s  %s\n", warnStyle.Render("warn"), pattern, message)
}

// CheckSummary closes a check report
func CheckSummary(w io.Writer, files, missing int) {
	if missing == 0 {
		fmt.Fprintf(w, "%s  checked %d files\n", okStyle.Render("ok"), files)
		return
	}
	fmt.Fprintf(w, "checked %d files, %d steps without definition\n", files, missing)
}

// StepLine lists one indexed step with its usage count
func StepLine(w io.Writer, count int, text, location string) {
	fmt.Fprintf(w, "%s  %s  %s\n", countStyle.Render(fmt.Sprint(count)), text, dimStyle.Render(location))
}

// StepsSummary closes a step listing
func StepsSummary(w io.Writer, count int) {
	fmt.Fprintf(w, "%d steps\n", count)
}

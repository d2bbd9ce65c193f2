package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/foxter/foxter/internal/types"
)

// Run shows the monitor for a live scan and returns the final model once
// the user quits. Quitting during a scan stops it and waits for Completed.
func Run(root string, events <-chan types.Event, hooks Hooks) (Model, error) {
	return run(NewModel(root, events, hooks, LoadPrefs()))
}

// RunResults shows the monitor on a finished scan, e.g. the cached last scan.
func RunResults(root string, results []types.ScanResult, actions map[string]string, hooks Hooks) (Model, error) {
	return run(NewResultsModel(root, results, actions, hooks, LoadPrefs()))
}

func run(m Model) (Model, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return m, fmt.Errorf("error running TUI: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return m, nil
	}
	return fm, nil
}

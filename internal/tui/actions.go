package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/foxter/foxter/internal/remediation"
	"github.com/foxter/foxter/internal/types"
)

// copyPath copies the selected result's path to the clipboard.
func (m Model) copyPath() tea.Cmd {
	r, ok := m.selected()
	if !ok {
		return func() tea.Msg { return statusMsg("No result selected") }
	}
	write := m.hooks.Copy
	if write == nil {
		write = clipboard.WriteAll
	}
	return func() tea.Msg {
		if err := write(r.Path); err != nil {
			return statusMsg(fmt.Sprintf("Clipboard error: %v", err))
		}
		return statusMsg(fmt.Sprintf("Copied: %s", r.Path))
	}
}

// quarantineSelected moves the selected file into quarantine. Only
// Suspicious results that have not been acted on yet are eligible.
func (m Model) quarantineSelected() tea.Cmd {
	r, ok := m.selected()
	if !ok {
		return func() tea.Msg { return statusMsg("No result selected") }
	}
	if r.Verdict != types.VerdictSuspicious {
		return func() tea.Msg { return statusMsg("Only suspicious files can be quarantined") }
	}
	if a := m.actions[r.Path]; a != "" {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Already %s", a)) }
	}
	if m.hooks.Quarantine == nil {
		return func() tea.Msg { return statusMsg("Quarantine not available") }
	}
	quarantine := m.hooks.Quarantine
	return func() tea.Msg {
		if err := quarantine(r.Path); err != nil {
			return statusMsg(fmt.Sprintf("Quarantine failed: %v", err))
		}
		return remediatedMsg{path: r.Path, action: remediation.ActionQuarantined}
	}
}

func (m Model) deleteFile(path string) tea.Cmd {
	del := m.hooks.Delete
	return func() tea.Msg {
		if err := del(path); err != nil {
			return statusMsg(fmt.Sprintf("Delete failed: %v", err))
		}
		return remediatedMsg{path: path, action: remediation.ActionDeleted}
	}
}

func (m Model) saveReport() tea.Cmd {
	if m.hooks.SaveReport == nil {
		return func() tea.Msg { return statusMsg("Report saving not available") }
	}
	if m.running {
		return func() tea.Msg { return statusMsg("Wait for the scan to finish") }
	}
	results := append([]types.ScanResult(nil), m.results...)
	actions := make(map[string]string, len(m.actions))
	for k, v := range m.actions {
		actions[k] = v
	}
	save := m.hooks.SaveReport
	return func() tea.Msg {
		path, err := save(results, actions)
		if err != nil {
			return statusMsg(fmt.Sprintf("Save failed: %v", err))
		}
		return statusMsg(fmt.Sprintf("Report saved to %s", path))
	}
}

func savePrefs(p Prefs) tea.Cmd {
	return func() tea.Msg {
		if err := SavePrefs(p); err != nil {
			return statusMsg(fmt.Sprintf("Could not save preferences: %v", err))
		}
		return nil
	}
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/foxter/foxter/internal/types"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	suspicious, errored := types.CountVerdicts(m.results)
	var state string
	switch {
	case m.running && m.stopping:
		state = m.spinner.View() + " Stopping"
	case m.running:
		state = m.spinner.View() + " Scanning"
	case m.stats != nil && m.stats.Cancelled:
		state = errorStyle.Render("Stopped")
	default:
		state = okStyle.Render("Done")
	}
	threats := fmt.Sprintf("Threats: %d", suspicious)
	if suspicious > 0 {
		threats = threatStyle.Render(threats)
	}
	statsContent := fmt.Sprintf("%s  %s  |  Files: %-5d  |  %s  |  Errors: %d",
		titleStyle.Render("foxter"), state, len(m.results), threats, errored)

	statsHeader := lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 2).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("237")).
		Render(statsContent)

	progressLine := lipgloss.NewStyle().
		Padding(0, 2).
		Render(fmt.Sprintf("%s  %3d%%  %s", m.progress.ViewAs(float64(m.percent)/100), m.percent, m.root))

	var body string
	if len(m.visibleIdx) == 0 {
		msg := "No results yet."
		if !m.running {
			msg = "No files scanned."
			if len(m.results) > 0 {
				msg = "No threats found.\n\nPress 'f' to show all results"
			}
		}
		body = lipgloss.Place(m.width-2, m.table.Height(), lipgloss.Center, lipgloss.Center, emptyTextStyle.Render(msg))
	} else {
		body = m.table.View()
	}
	tableRender := tableBorderStyle.
		Width(m.width - 2).
		Height(m.table.Height()).
		Render(body)

	statusRender := statusStyle.
		Width(m.width).
		Padding(0, 2).
		Render(m.statusMessage)

	mainView := lipgloss.JoinVertical(lipgloss.Left,
		statsHeader,
		progressLine,
		tableRender,
		statusRender,
	)

	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popupStyle.Render(helpText()))
	}
	return mainView
}

func helpText() string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyColor := lipgloss.Color("10")
	descColor := lipgloss.Color("250")

	formatRow := func(key, desc string) string {
		keyStyled := lipgloss.NewStyle().Foreground(keyColor).Render(key)
		descStyled := lipgloss.NewStyle().Foreground(descColor).Render(desc)
		padding := max(12-len(key), 1)
		return "  " + keyStyled + strings.Repeat(" ", padding) + descStyled
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render("Keyboard Shortcuts"),
		"",
		sectionStyle.Render("Scan"),
		formatRow("s", "Stop the running scan"),
		formatRow("q / Esc", "Stop and quit"),
		formatRow("Ctrl+c", "Quit immediately"),
		"",
		sectionStyle.Render("Results"),
		formatRow("j / k", "Move down / up"),
		formatRow("f", "Toggle threats-only view"),
		formatRow("c", "Copy path"),
		formatRow("w", "Save text report"),
		"",
		sectionStyle.Render("Remediation"),
		formatRow("x", "Quarantine suspicious file"),
		formatRow("d", "Delete file (asks first)"),
		"",
		"Press any key to close",
	}
	return strings.Join(lines, "\n")
}

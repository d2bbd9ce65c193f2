package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/foxter/foxter/internal/types"
)

var (
	tableBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	emptyTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Align(lipgloss.Center)

	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(1, 4)

	threatStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Hooks are the side effects the monitor can trigger. Nil hooks disable
// the matching key.
type Hooks struct {
	// Stop asks the running scan to finish early.
	Stop func()
	// Quarantine moves a Suspicious file into the quarantine vault.
	Quarantine func(path string) error
	// Delete removes a file permanently.
	Delete func(path string) error
	// SaveReport writes the results and returns where they went.
	SaveReport func(results []types.ScanResult, actions map[string]string) (string, error)
	// Copy puts text on the clipboard.
	Copy func(text string) error
}

type eventMsg types.Event

type streamClosedMsg struct{}

type statusMsg string

type remediatedMsg struct {
	path   string
	action string
}

// Model is the live scan monitor.
type Model struct {
	table    table.Model
	progress progress.Model
	spinner  spinner.Model

	events <-chan types.Event
	hooks  Hooks

	root          string
	results       []types.ScanResult
	visibleIdx    []int
	actions       map[string]string
	percent       int
	running       bool
	stopping      bool
	quitAfterScan bool
	stats         *types.ScanStats
	started       time.Time

	onlyFlagged   bool
	confirmDelete string
	showHelp      bool

	ready         bool
	quitting      bool
	width         int
	height        int
	statusMessage string
	statusTimeout *time.Time
}

// NewModel builds a monitor for a scan of root whose events arrive on events.
// A nil channel opens the monitor on already finished results.
func NewModel(root string, events <-chan types.Event, hooks Hooks, prefs Prefs) Model {
	columns := []table.Column{
		{Title: "Path", Width: 60},
		{Title: "Verdict", Width: 24},
		{Title: "Action", Width: 12},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Padding(0, 1).
		Align(lipgloss.Left)
	s.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("232")).
		Background(lipgloss.Color("208")).
		Bold(true).
		Padding(0, 1)
	s.Cell = lipgloss.NewStyle().
		Padding(0, 1)
	t.SetStyles(s)

	// Line spinner avoids Braille characters that render poorly on some terminals
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	m := Model{
		table:       t,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:     sp,
		events:      events,
		hooks:       hooks,
		root:        root,
		actions:     make(map[string]string),
		running:     events != nil,
		onlyFlagged: prefs.OnlyFlagged,
		started:     time.Now(),
	}
	if m.running {
		m.statusMessage = "s: stop | q: quit | ?: help"
	} else {
		m.percent = 100
		m.statusMessage = "q: quit | ?: help | x: quarantine | c: copy path"
	}
	return m
}

// NewResultsModel opens the monitor on the results of a finished scan.
func NewResultsModel(root string, results []types.ScanResult, actions map[string]string, hooks Hooks, prefs Prefs) Model {
	m := NewModel(root, nil, hooks, prefs)
	m.results = append([]types.ScanResult(nil), results...)
	for p, a := range actions {
		m.actions[p] = a
	}
	m.rebuildRows()
	return m
}

func waitForEvent(ch <-chan types.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Results returns everything received so far.
func (m Model) Results() []types.ScanResult { return m.results }

// Stats returns the completed scan's statistics, or nil while running.
func (m Model) Stats() *types.ScanStats { return m.stats }

// Actions returns the remediation applied per path during the session.
func (m Model) Actions() map[string]string { return m.actions }

func (m *Model) setStatus(msg string, d time.Duration) {
	m.statusMessage = msg
	if d > 0 {
		timeout := time.Now().Add(d)
		m.statusTimeout = &timeout
	} else {
		m.statusTimeout = nil
	}
}

func verdictText(r types.ScanResult) string {
	return r.Status()
}

func (m *Model) rebuildRows() {
	m.visibleIdx = make([]int, 0, len(m.results))
	rows := make([]table.Row, 0, len(m.results))
	for i, r := range m.results {
		if m.onlyFlagged && r.Verdict == types.VerdictClean {
			continue
		}
		m.visibleIdx = append(m.visibleIdx, i)
		rows = append(rows, table.Row{r.Path, verdictText(r), m.actions[r.Path]})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// selected returns the result under the cursor.
func (m Model) selected() (types.ScanResult, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.visibleIdx) {
		return types.ScanResult{}, false
	}
	return m.results[m.visibleIdx[c]], true
}

func (m Model) handleEvent(ev types.Event) (Model, tea.Cmd) {
	switch ev.Kind {
	case types.EventProgress:
		m.percent = ev.Percent
	case types.EventBatch:
		m.results = append(m.results, ev.Results...)
		m.rebuildRows()
	case types.EventCompleted:
		m.results = ev.Results
		m.stats = ev.Stats
		m.running = false
		m.stopping = false
		m.rebuildRows()
		suspicious, errored := types.CountVerdicts(m.results)
		summary := fmt.Sprintf("Scan complete: %d files, %d threats, %d errors", len(m.results), suspicious, errored)
		if ev.Stats != nil && ev.Stats.Cancelled {
			summary = fmt.Sprintf("Scan stopped: %d files, %d threats, %d errors", len(m.results), suspicious, errored)
		} else {
			m.percent = 100
		}
		m.setStatus(summary, 0)
		if m.quitAfterScan {
			m.quitting = true
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	}
	return m, waitForEvent(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		// header, progress, status bar and borders
		m.table.SetHeight(max(m.height-8, 3))
		pathWidth := max(m.width-24-12-10, 20)
		m.table.SetColumns([]table.Column{
			{Title: "Path", Width: pathWidth},
			{Title: "Verdict", Width: 24},
			{Title: "Action", Width: 12},
		})
		m.progress.Width = max(m.width-30, 10)
		return m, nil

	case eventMsg:
		return m.handleEvent(types.Event(msg))

	case streamClosedMsg:
		m.running = false
		m.events = nil
		if m.quitAfterScan {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case statusMsg:
		m.setStatus(string(msg), 5*time.Second)
		return m, nil

	case remediatedMsg:
		m.actions[msg.path] = msg.action
		m.rebuildRows()
		m.setStatus(fmt.Sprintf("%s: %s", msg.action, msg.path), 5*time.Second)
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		if m.statusTimeout != nil && time.Now().After(*m.statusTimeout) {
			m.statusTimeout = nil
			m.statusMessage = "s: stop | q: quit | ?: help"
		}
		return m, cmd

	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.confirmDelete != "" {
			path := m.confirmDelete
			m.confirmDelete = ""
			if msg.String() == "y" {
				return m, m.deleteFile(path)
			}
			m.setStatus("Delete cancelled", 3*time.Second)
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			if m.running && m.hooks.Stop != nil {
				m.hooks.Stop()
			}
			m.quitting = true
			return m, tea.Quit
		case "q", "esc":
			if m.running && m.hooks.Stop != nil {
				m.hooks.Stop()
				m.stopping = true
				m.quitAfterScan = true
				m.setStatus("Stopping scan...", 0)
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case "s":
			if m.running && !m.stopping && m.hooks.Stop != nil {
				m.hooks.Stop()
				m.stopping = true
				m.setStatus("Stopping scan...", 0)
			}
			return m, nil
		case "?":
			m.showHelp = true
			return m, nil
		case "f":
			m.onlyFlagged = !m.onlyFlagged
			m.rebuildRows()
			if m.onlyFlagged {
				m.setStatus("Showing threats and errors only", 3*time.Second)
			} else {
				m.setStatus("Showing all results", 3*time.Second)
			}
			return m, savePrefs(Prefs{OnlyFlagged: m.onlyFlagged})
		case "c":
			return m, m.copyPath()
		case "x":
			return m, m.quarantineSelected()
		case "d":
			r, ok := m.selected()
			if !ok || m.hooks.Delete == nil || m.actions[r.Path] != "" {
				return m, nil
			}
			m.confirmDelete = r.Path
			m.setStatus(fmt.Sprintf("Delete %s permanently? (y/N)", r.Path), 0)
			return m, nil
		case "w":
			return m, m.saveReport()
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

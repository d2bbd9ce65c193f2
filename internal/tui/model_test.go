package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/foxter/foxter/internal/remediation"
	"github.com/foxter/foxter/internal/types"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

// runCmd executes cmd and feeds the resulting message back into the model.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = update(t, m, cmd())
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func results(n int, suspicious ...int) []types.ScanResult {
	out := make([]types.ScanResult, n)
	for i := range out {
		out[i] = types.ScanResult{Path: fmt.Sprintf("/scan/f%02d", i), Verdict: types.VerdictClean}
	}
	for _, i := range suspicious {
		out[i].Verdict = types.VerdictSuspicious
	}
	return out
}

func TestModel_ConsumesEventStream(t *testing.T) {
	all := results(12, 4)
	ch := make(chan types.Event, 8)
	ch <- types.Event{Kind: types.EventProgress, Percent: 42}
	ch <- types.Event{Kind: types.EventBatch, Results: all[:10]}
	ch <- types.Event{Kind: types.EventCompleted, Results: all, Stats: &types.ScanStats{Total: 12, Processed: 12, Suspicious: 1}}
	close(ch)

	m := NewModel("/scan", ch, Hooks{}, Prefs{})
	if !m.running {
		t.Fatal("model should start in running state")
	}

	m = runCmd(t, m, waitForEvent(ch))
	if m.percent != 42 {
		t.Errorf("percent = %d, want 42", m.percent)
	}
	m, cmd := update(t, m, waitForEvent(ch)())
	if len(m.results) != 10 {
		t.Errorf("after batch got %d results, want 10", len(m.results))
	}
	m = runCmd(t, m, cmd)
	if m.running {
		t.Error("model still running after Completed")
	}
	if len(m.Results()) != 12 || m.Stats() == nil {
		t.Fatalf("completed state not recorded: %d results, stats %v", len(m.Results()), m.Stats())
	}
	if m.percent != 100 {
		t.Errorf("percent = %d, want 100 after completion", m.percent)
	}
	if !strings.Contains(m.statusMessage, "12 files, 1 threats") {
		t.Errorf("unexpected status %q", m.statusMessage)
	}
	if msg := waitForEvent(ch)(); msg != (streamClosedMsg{}) {
		t.Errorf("expected streamClosedMsg, got %T", msg)
	}
}

func TestModel_OnlyFlaggedFiltersRows(t *testing.T) {
	m := NewResultsModel("/scan", results(5, 1, 3), nil, Hooks{}, Prefs{OnlyFlagged: true})
	if got := len(m.table.Rows()); got != 2 {
		t.Fatalf("rows = %d, want 2 flagged", got)
	}
	r, ok := m.selected()
	if !ok || r.Path != "/scan/f01" {
		t.Errorf("selected = %v %v, want /scan/f01", r.Path, ok)
	}

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	m, _ = update(t, m, key("f"))
	if got := len(m.table.Rows()); got != 5 {
		t.Errorf("rows = %d after toggle, want 5", got)
	}
}

func TestModel_StopKey(t *testing.T) {
	stops := 0
	ch := make(chan types.Event)
	m := NewModel("/scan", ch, Hooks{Stop: func() { stops++ }}, Prefs{})

	m, _ = update(t, m, key("s"))
	m, _ = update(t, m, key("s"))
	if stops != 1 {
		t.Errorf("Stop called %d times, want 1", stops)
	}
	if !m.stopping {
		t.Error("expected stopping state")
	}
}

func TestModel_QuitDuringScanWaitsForCompleted(t *testing.T) {
	stops := 0
	ch := make(chan types.Event, 1)
	m := NewModel("/scan", ch, Hooks{Stop: func() { stops++ }}, Prefs{})

	m, cmd := update(t, m, key("q"))
	if stops != 1 {
		t.Fatalf("Stop called %d times, want 1", stops)
	}
	if isQuit(cmd) {
		t.Fatal("quit before the scan reported completion")
	}

	done := results(3)
	m, cmd = update(t, m, eventMsg{Kind: types.EventCompleted, Results: done, Stats: &types.ScanStats{Cancelled: true, Total: 9, Processed: 3}})
	if !isQuit(cmd) {
		t.Fatal("expected quit after Completed")
	}
	if len(m.Results()) != 3 {
		t.Errorf("final results = %d, want 3", len(m.Results()))
	}
	if !strings.HasPrefix(m.statusMessage, "Scan stopped") {
		t.Errorf("unexpected status %q", m.statusMessage)
	}
}

func TestModel_QuitWhenIdle(t *testing.T) {
	m := NewResultsModel("/scan", results(2), nil, Hooks{}, Prefs{})
	_, cmd := update(t, m, key("q"))
	if !isQuit(cmd) {
		t.Error("expected quit")
	}
}

func TestModel_QuarantineOnlySuspicious(t *testing.T) {
	var quarantined []string
	hooks := Hooks{Quarantine: func(p string) error {
		quarantined = append(quarantined, p)
		return nil
	}}
	m := NewResultsModel("/scan", results(3, 1), nil, hooks, Prefs{})

	// cursor on a Clean file
	m, cmd := update(t, m, key("x"))
	m = runCmd(t, m, cmd)
	if len(quarantined) != 0 {
		t.Fatalf("clean file quarantined: %v", quarantined)
	}
	if !strings.Contains(m.statusMessage, "Only suspicious") {
		t.Errorf("unexpected status %q", m.statusMessage)
	}

	m.table.SetCursor(1)
	m, cmd = update(t, m, key("x"))
	m = runCmd(t, m, cmd)
	if len(quarantined) != 1 || quarantined[0] != "/scan/f01" {
		t.Fatalf("quarantined = %v", quarantined)
	}
	if m.Actions()["/scan/f01"] != remediation.ActionQuarantined {
		t.Errorf("action not recorded: %v", m.Actions())
	}
	if m.table.Rows()[1][2] != remediation.ActionQuarantined {
		t.Errorf("row action = %q", m.table.Rows()[1][2])
	}

	// a second attempt is refused
	m, cmd = update(t, m, key("x"))
	runCmd(t, m, cmd)
	if len(quarantined) != 1 {
		t.Errorf("file quarantined twice")
	}
}

func TestModel_QuarantineFailureReported(t *testing.T) {
	hooks := Hooks{Quarantine: func(string) error { return errors.New("permission denied") }}
	m := NewResultsModel("/scan", results(1, 0), nil, hooks, Prefs{})
	m, cmd := update(t, m, key("x"))
	m = runCmd(t, m, cmd)
	if !strings.Contains(m.statusMessage, "permission denied") {
		t.Errorf("unexpected status %q", m.statusMessage)
	}
	if len(m.Actions()) != 0 {
		t.Errorf("failed quarantine recorded an action")
	}
}

func TestModel_DeleteAsksFirst(t *testing.T) {
	var deleted []string
	hooks := Hooks{Delete: func(p string) error {
		deleted = append(deleted, p)
		return nil
	}}
	m := NewResultsModel("/scan", results(2, 0), nil, hooks, Prefs{})

	m, _ = update(t, m, key("d"))
	m, cmd := update(t, m, key("n"))
	if cmd != nil || len(deleted) != 0 {
		t.Fatal("delete ran without confirmation")
	}

	m, _ = update(t, m, key("d"))
	m, cmd = update(t, m, key("y"))
	m = runCmd(t, m, cmd)
	if len(deleted) != 1 || deleted[0] != "/scan/f00" {
		t.Fatalf("deleted = %v", deleted)
	}
	if m.Actions()["/scan/f00"] != remediation.ActionDeleted {
		t.Errorf("action not recorded: %v", m.Actions())
	}
}

func TestModel_CopyPath(t *testing.T) {
	var copied string
	m := NewResultsModel("/scan", results(1), nil, Hooks{Copy: func(s string) error {
		copied = s
		return nil
	}}, Prefs{})
	_, cmd := update(t, m, key("c"))
	if msg := cmd(); !strings.Contains(string(msg.(statusMsg)), "Copied") {
		t.Errorf("unexpected message %v", msg)
	}
	if copied != "/scan/f00" {
		t.Errorf("copied %q", copied)
	}
}

func TestModel_SaveReport(t *testing.T) {
	var got []types.ScanResult
	hooks := Hooks{SaveReport: func(r []types.ScanResult, _ map[string]string) (string, error) {
		got = r
		return "/tmp/report.txt", nil
	}}
	m := NewResultsModel("/scan", results(4, 2), nil, hooks, Prefs{})
	m, cmd := update(t, m, key("w"))
	m = runCmd(t, m, cmd)
	if len(got) != 4 {
		t.Errorf("report got %d results, want 4", len(got))
	}
	if !strings.Contains(m.statusMessage, "/tmp/report.txt") {
		t.Errorf("unexpected status %q", m.statusMessage)
	}
}

func TestModel_SaveReportRefusedWhileRunning(t *testing.T) {
	called := false
	hooks := Hooks{SaveReport: func([]types.ScanResult, map[string]string) (string, error) {
		called = true
		return "", nil
	}}
	m := NewModel("/scan", make(chan types.Event), hooks, Prefs{})
	_, cmd := update(t, m, key("w"))
	cmd()
	if called {
		t.Error("report saved during a running scan")
	}
}

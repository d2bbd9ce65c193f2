// Package processes lists running processes and flags the ones that look
// like malware by name or by resource use.
package processes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/foxter/foxter/internal/logging"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	DefaultCPUThreshold    = 80.0
	DefaultMemoryThreshold = 50.0
	DefaultTerminateWait   = 3 * time.Second
)

// DefaultSuspiciousNames are matched as lowercase substrings of the process name.
var DefaultSuspiciousNames = []string{"keylogger", "malware", "botnet", "stealer"}

// ErrNotFound is returned when the pid does not name a running process.
var ErrNotFound = errors.New("process not found")

// Info is a snapshot of one process.
type Info struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	Username   string  `json:"username"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"memory_percent"`
	Reason     string  `json:"reason,omitempty"`
}

// Analyzer applies the suspicious-process heuristics.
type Analyzer struct {
	Names           []string
	CPUThreshold    float64
	MemoryThreshold float64
	Logger          *slog.Logger

	list func(ctx context.Context) ([]Info, error)
}

// NewAnalyzer returns an Analyzer with the default heuristics.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Names:           DefaultSuspiciousNames,
		CPUThreshold:    DefaultCPUThreshold,
		MemoryThreshold: DefaultMemoryThreshold,
	}
}

// Classify reports whether p is suspicious and why. A name match wins over
// resource use.
func (a *Analyzer) Classify(p Info) (bool, string) {
	name := strings.ToLower(p.Name)
	for _, term := range a.Names {
		if term != "" && strings.Contains(name, strings.ToLower(term)) {
			return true, "name matches " + term
		}
	}
	if p.CPUPercent > a.CPUThreshold {
		return true, fmt.Sprintf("cpu %.1f%%", p.CPUPercent)
	}
	if p.MemPercent > a.MemoryThreshold {
		return true, fmt.Sprintf("memory %.1f%%", p.MemPercent)
	}
	return false, ""
}

// DetectSuspicious lists processes and returns the flagged ones ordered by
// pid. Processes without an owning user are skipped.
func (a *Analyzer) DetectSuspicious(ctx context.Context) ([]Info, error) {
	log := a.Logger
	if log == nil {
		log = logging.Discard()
	}
	list := a.list
	if list == nil {
		list = listProcesses
	}
	all, err := list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	var out []Info
	for _, p := range all {
		if p.Username == "" {
			continue
		}
		ok, reason := a.Classify(p)
		if !ok {
			continue
		}
		p.Reason = reason
		log.Warn("suspicious process", "pid", p.PID, "name", p.Name, "reason", reason)
		out = append(out, p)
	}
	slices.SortFunc(out, func(x, y Info) int { return int(x.PID - y.PID) })
	return out, nil
}

// listProcesses snapshots every process the caller may inspect. Processes
// that vanish or deny access mid-read keep whatever fields were readable.
func listProcesses(ctx context.Context) ([]Info, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(procs))
	for _, p := range procs {
		info := Info{PID: p.Pid}
		info.Name, _ = p.NameWithContext(ctx)
		info.Username, _ = p.UsernameWithContext(ctx)
		info.CPUPercent, _ = p.CPUPercentWithContext(ctx)
		if mem, err := p.MemoryPercentWithContext(ctx); err == nil {
			info.MemPercent = float64(mem)
		}
		out = append(out, info)
	}
	return out, nil
}

// Terminate asks pid to exit and waits up to wait for it to go away, then
// kills it. forced reports whether the kill was needed.
func Terminate(ctx context.Context, pid int32, wait time.Duration) (forced bool, err error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return false, fmt.Errorf("pid %d: %w", pid, ErrNotFound)
		}
		return false, fmt.Errorf("pid %d: %w", pid, err)
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		return false, fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	if wait <= 0 {
		wait = DefaultTerminateWait
	}
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		running, err := p.IsRunningWithContext(ctx)
		if err == nil && !running {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	if err := p.KillWithContext(ctx); err != nil {
		return true, fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return true, nil
}

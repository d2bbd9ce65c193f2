package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Verdict is the classification outcome for one scanned file.
type Verdict string

const (
	VerdictClean      Verdict = "Clean"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictError      Verdict = "Error"
)

// ScanResult is the verdict for a single file. Message is only set for
// VerdictError and carries the underlying I/O or hashing failure.
type ScanResult struct {
	Path    string  `json:"path"`
	Verdict Verdict `json:"verdict"`
	Message string  `json:"message,omitempty"`
	SHA256  string  `json:"sha256,omitempty"`
}

// Status renders the verdict the way reports and tables show it,
// e.g. "Suspicious" or "Error: permission denied".
func (r ScanResult) Status() string {
	if r.Verdict == VerdictError && r.Message != "" {
		return fmt.Sprintf("%s: %s", r.Verdict, r.Message)
	}
	return string(r.Verdict)
}

// ScanStats summarizes a finished (or cancelled) scan.
type ScanStats struct {
	ScanID     string        `json:"scan_id"`
	Root       string        `json:"root"`
	Total      int           `json:"total"`
	Processed  int           `json:"processed"`
	Suspicious int           `json:"suspicious"`
	Errors     int           `json:"errors"`
	Cancelled  bool          `json:"cancelled"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
}

// EventKind discriminates the events a scan emits.
type EventKind int

const (
	EventProgress EventKind = iota
	EventBatch
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventBatch:
		return "batch"
	case EventCompleted:
		return "completed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

func (k EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Event is one message on a scan's event stream. Percent is set for
// EventProgress, Results for EventBatch and EventCompleted, Stats only for
// EventCompleted. Results slices are never shared with the scanning worker.
type Event struct {
	Kind    EventKind    `json:"kind"`
	Percent int          `json:"percent,omitempty"`
	Results []ScanResult `json:"results,omitempty"`
	Stats   *ScanStats   `json:"stats,omitempty"`
}

// CountVerdicts returns the number of suspicious and errored results.
func CountVerdicts(results []ScanResult) (suspicious, errored int) {
	for _, r := range results {
		switch r.Verdict {
		case VerdictSuspicious:
			suspicious++
		case VerdictError:
			errored++
		}
	}
	return suspicious, errored
}

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/foxter/foxter/internal/types"
	"github.com/olekukonko/tablewriter"
)

type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesScanned int
	TotalFiles   int
	Cancelled    bool
	// OnlyFlagged hides Clean results.
	OnlyFlagged bool
	// Actions maps a path to the remediation applied to it.
	Actions map[string]string
}

func visible(results []types.ScanResult, opts PrintOptions) []types.ScanResult {
	if !opts.OnlyFlagged {
		return results
	}
	var out []types.ScanResult
	for _, r := range results {
		if r.Verdict != types.VerdictClean {
			out = append(out, r)
		}
	}
	return out
}

// PrintTable renders results as a bordered table followed by a summary.
func PrintTable(w io.Writer, results []types.ScanResult, opts PrintOptions) error {
	rows := visible(results, opts)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No threats found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("Path", "Verdict", "Action")
		for _, r := range rows {
			if err := table.Append([]string{r.Path, r.Status(), opts.Actions[r.Path]}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	printSummary(w, results, opts)
	return nil
}

// PrintText writes one "path - verdict - action" line per result, the
// format of saved reports.
func PrintText(w io.Writer, results []types.ScanResult, opts PrintOptions) {
	for _, r := range visible(results, opts) {
		fmt.Fprintf(w, "%s - %s - %s\n", r.Path, r.Status(), opts.Actions[r.Path])
	}
	printSummary(w, results, opts)
}

// WriteJSON pretty-prints results; nil becomes [] so consumers never see null.
func WriteJSON(w io.Writer, results []types.ScanResult) error {
	if results == nil {
		results = []types.ScanResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// ShouldFail reports whether any result is Suspicious.
func ShouldFail(results []types.ScanResult) bool {
	for _, r := range results {
		if r.Verdict == types.VerdictSuspicious {
			return true
		}
	}
	return false
}

func printSummary(w io.Writer, results []types.ScanResult, opts PrintOptions) {
	suspicious, errored := types.CountVerdicts(results)
	fmt.Fprintln(w)
	threats := fmt.Sprintf("Threats: %d", suspicious)
	if !opts.NoColor && suspicious > 0 {
		threats = "\x1b[31m" + threats + "\x1b[0m"
	}
	fmt.Fprintf(w, "Total: %d  %s  Errors: %d\n", len(results), threats, errored)
	if opts.FilesScanned > 0 || opts.TotalFiles > 0 {
		fmt.Fprintf(w, "Files scanned: %d/%d\n", opts.FilesScanned, opts.TotalFiles)
	}
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
	if opts.Cancelled {
		fmt.Fprintln(w, "Scan stopped before completion")
	}
}

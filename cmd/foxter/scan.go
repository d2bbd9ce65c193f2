package foxter

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/foxter/foxter/internal/audit"
	"github.com/foxter/foxter/internal/cache"
	"github.com/foxter/foxter/internal/engine"
	"github.com/foxter/foxter/internal/notify"
	"github.com/foxter/foxter/internal/remediation"
	"github.com/foxter/foxter/internal/report"
	"github.com/foxter/foxter/internal/signatures"
	"github.com/foxter/foxter/internal/tui"
	"github.com/foxter/foxter/internal/types"
	"github.com/foxter/foxter/internal/update"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagPath             string
	flagInclude          string
	flagExclude          string
	flagSignatures       []string
	flagBatchSize        int
	flagTUI              bool
	flagText             bool
	flagReport           string
	flagSARIF            string
	flagDryRun           bool
	flagFailOnSuspicious bool
	flagNotify           bool
	flagOnlyFlagged      bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan files for known malware",
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "directory to scan")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().StringSliceVar(&flagSignatures, "signatures", nil, "extra signature files (sha256sum format)")
	cmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "results per batch event (default 10)")
	cmd.Flags().BoolVar(&flagTUI, "tui", false, "show the interactive scan monitor")
	cmd.Flags().BoolVar(&flagText, "text", false, "print one 'path - verdict - action' line per result")
	cmd.Flags().StringVar(&flagReport, "report", "", "also save a text report to this file")
	cmd.Flags().StringVar(&flagSARIF, "sarif", "", "also write suspicious and errored files as SARIF to this file")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "list the files that would be scanned without reading them")
	cmd.Flags().BoolVar(&flagFailOnSuspicious, "fail-on-suspicious", false, "exit 1 when any file is suspicious")
	cmd.Flags().BoolVar(&flagNotify, "notify", false, "send a desktop notification when threats are found")
	cmd.Flags().BoolVar(&flagOnlyFlagged, "only-flagged", false, "hide clean files from the output")
}

func runScan(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	abs, err := filepath.Abs(flagPath)
	if err != nil {
		return err
	}
	// Load configs: CLI > local > global
	lcfg, gcfg, err := loadConfigs(abs)
	if err != nil {
		return err
	}

	var sigFiles []string
	sigFiles = append(sigFiles, gcfg.Signatures...)
	sigFiles = append(sigFiles, lcfg.Signatures...)
	sigFiles = append(sigFiles, flagSignatures...)
	sigs, err := signatures.Load(sigFiles...)
	if err != nil {
		return fmt.Errorf("load signatures: %w", err)
	}

	cfg := engine.Config{
		IncludeGlobs: pickString(flagInclude, lcfg.Include, gcfg.Include),
		ExcludeGlobs: pickString(flagExclude, lcfg.Exclude, gcfg.Exclude),
		BatchSize:    pickInt(flagBatchSize, lcfg.BatchSize, gcfg.BatchSize),
		Logger:       logger,
	}

	if flagDryRun {
		// a missing or non-directory root scans nothing
		if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
			logger.Info("dry run: nothing to scan", "root", abs)
			return nil
		}
		return engine.Walk(abs, cfg, logger, func(p string) {
			fmt.Fprintln(out, p)
		})
	}

	if !flagJSON {
		if !flagNoUpdateCheck {
			if latest, newer, _ := update.Check(version, false); newer && latest != "" {
				_, _ = fmt.Fprintf(errOut, "(new version available: v%s)  run 'foxter update' to upgrade\n", latest)
			}
		}
		_, _ = fmt.Fprintf(errOut, "Scanning %s with %d signatures...\n", abs, sigs.Len())
	}

	state, err := stateDir()
	if err != nil {
		return err
	}
	qdir, err := quarantineDir(lcfg, gcfg)
	if err != nil {
		return err
	}
	vault := remediation.NewVault(qdir, logger)

	// Ctrl-C stops the scan; results gathered so far are still reported.
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	eng := engine.New(sigs, cfg)
	events, err := eng.Start(ctx, abs)
	if err != nil {
		return err
	}

	var (
		results []types.ScanResult
		stats   types.ScanStats
		actions map[string]string
	)
	if flagTUI {
		m, err := tui.Run(abs, events, tui.Hooks{
			Stop: eng.Stop,
			Quarantine: func(p string) error {
				_, err := vault.Quarantine(p)
				return err
			},
			Delete: func(p string) error { return remediation.Delete(p, logger) },
			SaveReport: func(rs []types.ScanResult, acts map[string]string) (string, error) {
				name := fmt.Sprintf("foxter-report-%s.txt", time.Now().Format("20060102-150405"))
				return name, writeTextReport(name, rs, report.PrintOptions{Actions: acts})
			},
		})
		if err != nil {
			eng.Stop()
			drain(events)
			return err
		}
		actions = m.Actions()
		if s := m.Stats(); s != nil {
			results, stats = m.Results(), *s
		} else {
			// the monitor was closed before the scan reported back
			eng.Stop()
			results, stats = drain(events)
		}
	} else {
		showProgress := !flagJSON && isTerminal(errOut)
		results, stats = consume(events, func(pct int) {
			if showProgress {
				_, _ = fmt.Fprintf(errOut, "\r[%3d%%] %s", pct, abs)
			}
		})
		if showProgress {
			_, _ = fmt.Fprintln(errOut)
		}
	}

	if err := cache.SaveResults(state, stats, results); err != nil {
		logger.Warn("save last scan", "error", err)
	}
	recordActions(state, actions)
	if err := audit.NewAuditLog(state).LogScan(audit.CreateScanRecord(stats, results)); err != nil {
		logger.Warn("write audit log", "error", err)
	}

	opts := report.PrintOptions{
		NoColor:      pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor),
		Duration:     stats.Duration,
		FilesScanned: stats.Processed,
		TotalFiles:   stats.Total,
		Cancelled:    stats.Cancelled,
		OnlyFlagged:  flagOnlyFlagged,
		Actions:      actions,
	}
	switch {
	case flagJSON:
		if err := report.WriteJSON(out, results); err != nil {
			return err
		}
	case flagText:
		report.PrintText(out, results, opts)
	default:
		if err := report.PrintTable(out, results, opts); err != nil {
			return err
		}
	}

	if flagReport != "" {
		if err := writeTextReport(flagReport, results, report.PrintOptions{NoColor: true, Actions: actions, Cancelled: stats.Cancelled}); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		if !flagJSON {
			_, _ = fmt.Fprintln(errOut, "Report saved to", flagReport)
		}
	}

	if flagSARIF != "" {
		if err := writeSARIF(flagSARIF, results, &stats); err != nil {
			return fmt.Errorf("save sarif: %w", err)
		}
	}

	if stats.Suspicious > 0 && pickBool(flagNotify, lcfg.Notify, gcfg.Notify) {
		title, msg := notify.ScanSummary(stats.Suspicious, stats.Processed)
		if err := (notify.Notifier{GOOS: goos, Runner: runner}).Send(context.Background(), title, msg); err != nil {
			logger.Warn("desktop notification", "error", err)
		}
	}

	if flagFailOnSuspicious && report.ShouldFail(results) {
		return &exitError{code: 1}
	}
	return nil
}

// consume reads a scan's events until the stream closes, reporting progress
// as it goes, and returns the Completed payload.
func consume(events <-chan types.Event, onProgress func(int)) ([]types.ScanResult, types.ScanStats) {
	var (
		results []types.ScanResult
		stats   types.ScanStats
	)
	for ev := range events {
		switch ev.Kind {
		case types.EventProgress:
			if onProgress != nil {
				onProgress(ev.Percent)
			}
		case types.EventCompleted:
			results = ev.Results
			if ev.Stats != nil {
				stats = *ev.Stats
			}
		}
	}
	return results, stats
}

func drain(events <-chan types.Event) ([]types.ScanResult, types.ScanStats) {
	return consume(events, nil)
}

func writeTextReport(path string, results []types.ScanResult, opts report.PrintOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	report.PrintText(f, results, opts)
	return f.Close()
}

func writeSARIF(path string, results []types.ScanResult, stats *types.ScanStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteSARIF(f, version, results, stats); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

package foxter

import (
	"errors"
	"fmt"
	"os"

	"github.com/foxter/foxter/internal/cache"
	"github.com/foxter/foxter/internal/remediation"
	"github.com/foxter/foxter/internal/report"
	"github.com/foxter/foxter/internal/tui"
	"github.com/foxter/foxter/internal/types"
	"github.com/spf13/cobra"
)

var (
	flagReportText   bool
	flagReportOutput string
	flagReportTUI    bool
	flagReportAll    bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show or save the results of the last scan",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}
	cmd.Flags().BoolVar(&flagReportText, "text", false, "print one 'path - verdict - action' line per result")
	cmd.Flags().StringVarP(&flagReportOutput, "output", "o", "", "save a text report to this file")
	cmd.Flags().BoolVar(&flagReportTUI, "tui", false, "open the results in the interactive monitor")
	cmd.Flags().BoolVar(&flagReportAll, "all", false, "include clean files")
	rootCmd.AddCommand(cmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	dir, err := stateDir()
	if err != nil {
		return err
	}
	last, err := cache.LoadResults(dir)
	if errors.Is(err, os.ErrNotExist) {
		return errors.New("no scan results yet; run 'foxter scan' first")
	}
	if err != nil {
		return err
	}
	opts := report.PrintOptions{
		NoColor:     flagNoColor,
		Cancelled:   last.Cancelled,
		OnlyFlagged: !flagReportAll,
		Actions:     last.Actions,
	}
	out := cmd.OutOrStdout()
	switch {
	case flagReportTUI:
		vault, err := openVault()
		if err != nil {
			return err
		}
		m, err := tui.RunResults(last.Root, last.Results, last.Actions, tui.Hooks{
			Quarantine: func(p string) error {
				_, err := vault.Quarantine(p)
				return err
			},
			Delete: func(p string) error { return remediation.Delete(p, logger) },
			SaveReport: func(rs []types.ScanResult, acts map[string]string) (string, error) {
				name := "foxter-report.txt"
				return name, writeTextReport(name, rs, report.PrintOptions{NoColor: true, Actions: acts})
			},
		})
		if err != nil {
			return err
		}
		changed := map[string]string{}
		for p, a := range m.Actions() {
			if last.Actions[p] != a {
				changed[p] = a
			}
		}
		recordActions(dir, changed)
		return nil
	case flagReportOutput != "":
		opts.NoColor = true
		if err := writeTextReport(flagReportOutput, last.Results, opts); err != nil {
			return err
		}
		fmt.Fprintln(out, "Report saved to", flagReportOutput)
		return nil
	case flagJSON:
		return printJSON(out, last)
	case flagReportText:
		fmt.Fprintf(out, "Scan of %s at %s\n\n", last.Root, last.Timestamp.Local().Format("2006-01-02 15:04"))
		report.PrintText(out, last.Results, opts)
		return nil
	default:
		fmt.Fprintf(out, "Scan of %s at %s\n\n", last.Root, last.Timestamp.Local().Format("2006-01-02 15:04"))
		return report.PrintTable(out, last.Results, opts)
	}
}

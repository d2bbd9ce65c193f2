package foxter

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/foxter/foxter/internal/audit"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past scans, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <index>",
		Short: "Remove one entry (as numbered by 'foxter history')",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDelete,
	})
	rootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	dir, err := stateDir()
	if err != nil {
		return err
	}
	records, err := audit.NewAuditLog(dir).LoadHistory()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if flagJSON {
		if records == nil {
			records = []audit.ScanRecord{}
		}
		return printJSON(cmd.OutOrStdout(), records)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded yet")
		return nil
	}
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		status := "complete"
		if r.Cancelled {
			status = "stopped"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Root,
			fmt.Sprintf("%d/%d", r.FilesScanned, r.TotalFiles),
			strconv.Itoa(r.Suspicious),
			strconv.Itoa(r.Errors),
			status,
		})
	}
	return renderTable(cmd.OutOrStdout(), []string{"#", "When", "Root", "Files", "Threats", "Errors", "Status"}, rows)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	dir, err := stateDir()
	if err != nil {
		return err
	}
	if err := audit.NewAuditLog(dir).DeleteRecord(i); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted history entry", i)
	return nil
}

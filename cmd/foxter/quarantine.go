package foxter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/foxter/foxter/internal/cache"
	"github.com/foxter/foxter/internal/remediation"
	"github.com/spf13/cobra"
)

var (
	flagRestoreTo string
	flagYes       bool
)

func init() {
	qCmd := &cobra.Command{Use: "quarantine", Short: "Isolate, list and restore quarantined files"}
	rootCmd.AddCommand(qCmd)

	qCmd.AddCommand(&cobra.Command{
		Use:   "add <path>...",
		Short: "Move files into quarantine",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuarantineAdd,
	})
	qCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List quarantined files",
		Args:  cobra.NoArgs,
		RunE:  runQuarantineList,
	})
	restoreCmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a quarantined file to its original location",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuarantineRestore,
	}
	restoreCmd.Flags().StringVar(&flagRestoreTo, "to", "", "restore to this path instead")
	qCmd.AddCommand(restoreCmd)
	qCmd.AddCommand(&cobra.Command{
		Use:   "purge <id>",
		Short: "Permanently delete a quarantined file",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuarantinePurge,
	})

	delCmd := &cobra.Command{
		Use:   "delete <path>...",
		Short: "Permanently delete files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDelete,
	}
	delCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(delCmd)
}

func openVault() (*remediation.Vault, error) {
	wd, _ := os.Getwd()
	lcfg, gcfg, err := loadConfigs(wd)
	if err != nil {
		return nil, err
	}
	dir, err := quarantineDir(lcfg, gcfg)
	if err != nil {
		return nil, err
	}
	return remediation.NewVault(dir, logger), nil
}

// markAction records action against path in the last scan when the path
// was part of it.
func markAction(path, action string) {
	dir, err := stateDir()
	if err != nil {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	if err := cache.MarkAction(dir, abs, action); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debug("record action", "path", abs, "error", err)
	}
}

// recordActions stores actions taken during a scan or report session in the
// cached last scan of dir.
func recordActions(dir string, actions map[string]string) {
	for p, a := range actions {
		if err := cache.MarkAction(dir, p, a); err != nil {
			logger.Warn("record action", "path", p, "action", a, "error", err)
		}
	}
}

func runQuarantineAdd(cmd *cobra.Command, args []string) error {
	v, err := openVault()
	if err != nil {
		return err
	}
	var failed int
	for _, p := range args {
		e, err := v.Quarantine(p)
		if err != nil {
			failed++
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			continue
		}
		markAction(e.OriginalPath, remediation.ActionQuarantined)
		fmt.Fprintf(cmd.OutOrStdout(), "Quarantined %s (id %s)\n", e.OriginalPath, e.ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be quarantined", failed, len(args))
	}
	return nil
}

func runQuarantineList(cmd *cobra.Command, _ []string) error {
	v, err := openVault()
	if err != nil {
		return err
	}
	entries, err := v.List()
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Quarantine is empty")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID,
			e.OriginalPath,
			strconv.FormatInt(e.Size, 10),
			e.QuarantinedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(cmd.OutOrStdout(), []string{"ID", "Original path", "Size", "Quarantined"}, rows)
}

func runQuarantineRestore(cmd *cobra.Command, args []string) error {
	v, err := openVault()
	if err != nil {
		return err
	}
	dest, err := v.Restore(args[0], flagRestoreTo)
	if err != nil {
		return err
	}
	markAction(dest, remediation.ActionRestored)
	fmt.Fprintln(cmd.OutOrStdout(), "Restored", dest)
	return nil
}

func runQuarantinePurge(cmd *cobra.Command, args []string) error {
	v, err := openVault()
	if err != nil {
		return err
	}
	if err := v.Purge(args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Purged", args[0])
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	var failed int
	for _, p := range args {
		if !flagYes && !confirm(cmd, fmt.Sprintf("Delete %s permanently?", p)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Skipped", p)
			continue
		}
		if err := remediation.Delete(p, logger); err != nil {
			failed++
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			continue
		}
		markAction(p, remediation.ActionDeleted)
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted", p)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be deleted", failed, len(args))
	}
	return nil
}

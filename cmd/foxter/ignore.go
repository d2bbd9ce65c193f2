package foxter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foxter/foxter/internal/ignore"
	"github.com/spf13/cobra"
)

var flagIgnoreRoot string

func init() {
	igCmd := &cobra.Command{Use: "ignore", Short: "Manage the .foxterignore of a scan root"}
	igCmd.PersistentFlags().StringVarP(&flagIgnoreRoot, "path", "p", ".", "scan root holding .foxterignore")
	rootCmd.AddCommand(igCmd)

	igCmd.AddCommand(&cobra.Command{
		Use:   "add <pattern>...",
		Short: "Add gitignore-style patterns to skip during scans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if err := ignore.Append(flagIgnoreRoot, p); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated", filepath.Join(flagIgnoreRoot, ignore.FileName))
			return nil
		},
	})
	igCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the ignore patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patterns, err := ignore.Patterns(flagIgnoreRoot)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if flagJSON {
				if patterns == nil {
					patterns = []string{}
				}
				return printJSON(cmd.OutOrStdout(), patterns)
			}
			for _, p := range patterns {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	})
}

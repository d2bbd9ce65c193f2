package foxter

import (
	"fmt"

	"github.com/foxter/foxter/internal/update"
	"github.com/spf13/cobra"
)

var flagUpdateCheckOnly bool

func init() {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update foxter to the latest release",
		Args:  cobra.NoArgs,
		RunE:  runUpdate,
	}
	cmd.Flags().BoolVar(&flagUpdateCheckOnly, "check", false, "only report whether a newer release exists")
	rootCmd.AddCommand(cmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the foxter version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "foxter", version)
		},
	})
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if flagUpdateCheckOnly {
		latest, newer, err := update.Check(version, flagNoUpdateCheck)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		switch {
		case newer:
			fmt.Fprintf(out, "foxter %s is available (current %s); run 'foxter update'\n", latest, version)
		case latest == "":
			fmt.Fprintln(out, "Update check skipped")
		default:
			fmt.Fprintf(out, "foxter %s is up to date\n", version)
		}
		return nil
	}
	v, err := selfUpdate()
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	logger.Info("self update", "from", version, "to", v)
	fmt.Fprintf(out, "Updated to %s\n", v)
	return nil
}

package foxter

import (
	"fmt"

	"github.com/foxter/foxter/internal/users"
	"github.com/spf13/cobra"
)

var flagRecentOnly bool

func init() {
	uCmd := &cobra.Command{Use: "users", Short: "Review and remove local accounts"}
	rootCmd.AddCommand(uCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List local accounts, marking ones created in the last 24 hours",
		Args:  cobra.NoArgs,
		RunE:  runUsersList,
	}
	listCmd.Flags().BoolVar(&flagRecentOnly, "recent", false, "show only recently created accounts")
	uCmd.AddCommand(listCmd)

	delCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a local account (needs root or administrator)",
		Args:  cobra.ExactArgs(1),
		RunE:  runUsersDelete,
	}
	delCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "do not ask for confirmation")
	uCmd.AddCommand(delCmd)
}

func userManager() *users.Manager {
	m := users.NewManager(goos, runner)
	m.Logger = logger
	return m
}

func runUsersList(cmd *cobra.Command, _ []string) error {
	accounts, err := userManager().List(cmd.Context())
	if err != nil {
		return err
	}
	if flagRecentOnly {
		kept := accounts[:0]
		for _, a := range accounts {
			if a.Recent {
				kept = append(kept, a)
			}
		}
		accounts = kept
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), accounts)
	}
	if len(accounts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No accounts found")
		return nil
	}
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		flag := ""
		if a.Recent {
			flag = "recently created"
		}
		rows = append(rows, []string{a.Name, a.Home, flag})
	}
	return renderTable(cmd.OutOrStdout(), []string{"User", "Home", "Note"}, rows)
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !flagYes && !confirm(cmd, fmt.Sprintf("Delete account %s and its home directory?", name)) {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
		return nil
	}
	if err := userManager().Delete(cmd.Context(), name); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted account", name)
	return nil
}

package foxter

import (
	"errors"
	"fmt"

	"github.com/foxter/foxter/internal/firewall"
	"github.com/spf13/cobra"
)

func init() {
	fwCmd := &cobra.Command{Use: "firewall", Short: "Check or enable the host firewall"}
	rootCmd.AddCommand(fwCmd)

	fwCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether the firewall is active",
		Args:  cobra.NoArgs,
		RunE:  runFirewallStatus,
	})
	fwCmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Turn the firewall on (needs root or administrator)",
		Args:  cobra.NoArgs,
		RunE:  runFirewallEnable,
	})
}

func firewallBackend() (firewall.Backend, error) {
	dir, err := stateDir()
	if err != nil {
		return nil, err
	}
	return firewall.New(goos, runner, dir)
}

func runFirewallStatus(cmd *cobra.Command, _ []string) error {
	fw, err := firewallBackend()
	if err != nil {
		return err
	}
	st, err := fw.CheckStatus(cmd.Context())
	if errors.Is(err, firewall.ErrMissingTool) {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		st = firewall.Unprotected()
	} else if err != nil {
		return err
	}
	logger.Info("firewall status", "backend", fw.Name(), "active", st.Active, "threats", len(st.Threats))
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), st)
	}
	state := "inactive"
	if st.Active {
		state = "active"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Firewall (%s): %s\n", fw.Name(), state)
	if len(st.Threats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No firewall threats found")
		return nil
	}
	rows := make([][]string, 0, len(st.Threats))
	for _, t := range st.Threats {
		rows = append(rows, []string{t.Name, t.Description})
	}
	return renderTable(cmd.OutOrStdout(), []string{"Threat", "Description"}, rows)
}

func runFirewallEnable(cmd *cobra.Command, _ []string) error {
	fw, err := firewallBackend()
	if err != nil {
		return err
	}
	if err := fw.Enable(cmd.Context()); err != nil {
		return err
	}
	logger.Info("firewall enabled", "backend", fw.Name())
	fmt.Fprintf(cmd.OutOrStdout(), "Firewall enabled (%s)\n", fw.Name())
	return nil
}

package foxter

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/foxter/foxter/internal/ports"
	"github.com/spf13/cobra"
)

var (
	flagPortsHost    string
	flagPortsList    []int
	flagPortsTimeout time.Duration
	flagPortsWorkers int
)

func init() {
	pCmd := &cobra.Command{Use: "ports", Short: "Probe and close local TCP ports"}
	rootCmd.AddCommand(pCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Probe TCP ports and rate the open ones",
		Args:  cobra.NoArgs,
		RunE:  runPortsCheck,
	}
	checkCmd.Flags().StringVar(&flagPortsHost, "host", ports.DefaultHost, "host to probe")
	checkCmd.Flags().IntSliceVar(&flagPortsList, "ports", nil, "ports to probe (default 80,443,8080)")
	checkCmd.Flags().DurationVar(&flagPortsTimeout, "timeout", 0, "per-port connect timeout (default 500ms)")
	checkCmd.Flags().IntVar(&flagPortsWorkers, "workers", 0, "concurrent probes (default 5)")
	pCmd.AddCommand(checkCmd)

	pCmd.AddCommand(&cobra.Command{
		Use:   "close <port>",
		Short: "Block inbound TCP traffic to a port in the host firewall",
		Args:  cobra.ExactArgs(1),
		RunE:  runPortsClose,
	})
}

func runPortsCheck(cmd *cobra.Command, _ []string) error {
	wd, _ := os.Getwd()
	lcfg, gcfg, err := loadConfigs(wd)
	if err != nil {
		return err
	}
	c := ports.NewChecker()
	c.Host = flagPortsHost
	c.Logger = logger
	c.Timeout = flagPortsTimeout
	if c.Timeout <= 0 {
		c.Timeout = lcfg.PortTimeoutOr(gcfg.PortTimeoutOr(ports.DefaultTimeout))
	}
	if w := pickInt(flagPortsWorkers, lcfg.PortWorkers, gcfg.PortWorkers); w > 0 {
		c.Workers = w
	}
	list := pickList(flagPortsList, lcfg.Ports, gcfg.Ports)
	if len(list) == 0 {
		list = ports.DefaultPorts
	}

	results, open, err := c.Check(cmd.Context(), list)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"host":    c.Host,
			"open":    open,
			"results": results,
		})
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		state := "closed"
		if r.Open {
			state = "open"
		}
		rows = append(rows, []string{strconv.Itoa(r.Port), state, r.Description})
	}
	if err := renderTable(cmd.OutOrStdout(), []string{"Port", "State", "Risk"}, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d ports open on %s\n", open, len(results), c.Host)
	return nil
}

func runPortsClose(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid port %q", args[0])
	}
	fw, err := firewallBackend()
	if err != nil {
		return err
	}
	if err := fw.ClosePort(cmd.Context(), port); err != nil {
		return err
	}
	logger.Info("port closed", "port", port, "backend", fw.Name())
	fmt.Fprintf(cmd.OutOrStdout(), "Port %d blocked (%s)\n", port, fw.Name())
	return nil
}

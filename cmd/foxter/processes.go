package foxter

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/foxter/foxter/internal/processes"
	"github.com/spf13/cobra"
)

var (
	flagCPUThreshold    float64
	flagMemoryThreshold float64
	flagKillWait        time.Duration
)

func init() {
	pCmd := &cobra.Command{Use: "processes", Short: "Find and stop suspicious processes"}
	rootCmd.AddCommand(pCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List processes flagged by name or resource use",
		Args:  cobra.NoArgs,
		RunE:  runProcessesList,
	}
	listCmd.Flags().Float64Var(&flagCPUThreshold, "cpu", 0, "flag processes above this CPU percent (default 80)")
	listCmd.Flags().Float64Var(&flagMemoryThreshold, "memory", 0, "flag processes above this memory percent (default 50)")
	pCmd.AddCommand(listCmd)

	killCmd := &cobra.Command{
		Use:   "kill <pid>",
		Short: "Terminate a process, killing it if it does not exit in time",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcessesKill,
	}
	killCmd.Flags().DurationVar(&flagKillWait, "wait", processes.DefaultTerminateWait, "grace period before a forced kill")
	pCmd.AddCommand(killCmd)
}

func runProcessesList(cmd *cobra.Command, _ []string) error {
	wd, _ := os.Getwd()
	lcfg, gcfg, err := loadConfigs(wd)
	if err != nil {
		return err
	}
	a := processes.NewAnalyzer()
	a.Logger = logger
	if v := pickFloat(flagCPUThreshold, lcfg.CPUThreshold, gcfg.CPUThreshold); v > 0 {
		a.CPUThreshold = v
	}
	if v := pickFloat(flagMemoryThreshold, lcfg.MemoryThreshold, gcfg.MemoryThreshold); v > 0 {
		a.MemoryThreshold = v
	}
	if names := pickList(nil, lcfg.SuspiciousNames, gcfg.SuspiciousNames); len(names) > 0 {
		a.Names = names
	}

	found, err := a.DetectSuspicious(cmd.Context())
	if err != nil {
		return err
	}
	if flagJSON {
		if found == nil {
			found = []processes.Info{}
		}
		return printJSON(cmd.OutOrStdout(), found)
	}
	if len(found) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No suspicious processes found")
		return nil
	}
	rows := make([][]string, 0, len(found))
	for _, p := range found {
		rows = append(rows, []string{
			strconv.Itoa(int(p.PID)),
			p.Name,
			p.Username,
			fmt.Sprintf("%.1f", p.CPUPercent),
			fmt.Sprintf("%.1f", p.MemPercent),
			p.Reason,
		})
	}
	return renderTable(cmd.OutOrStdout(), []string{"PID", "Name", "User", "CPU %", "Mem %", "Reason"}, rows)
}

func runProcessesKill(cmd *cobra.Command, args []string) error {
	pid, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil || pid <= 0 {
		return fmt.Errorf("invalid pid %q", args[0])
	}
	if int(pid) == os.Getpid() {
		return errors.New("refusing to terminate foxter itself")
	}
	forced, err := processes.Terminate(cmd.Context(), int32(pid), flagKillWait)
	if err != nil {
		return err
	}
	logger.Info("process terminated", "pid", pid, "forced", forced)
	if forced {
		fmt.Fprintf(cmd.OutOrStdout(), "Process %d killed\n", pid)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Process %d terminated\n", pid)
	}
	return nil
}

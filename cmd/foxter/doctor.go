package foxter

import (
	"fmt"

	"github.com/foxter/foxter/internal/config"
	"github.com/spf13/cobra"
)

// toolsFor lists the external programs each feature drives on goos.
func toolsFor(goos string) [][2]string {
	switch goos {
	case "linux":
		return [][2]string{{"firewall", "ufw"}, {"users", "userdel"}, {"notify", "notify-send"}}
	case "darwin":
		return [][2]string{{"firewall", "pfctl"}, {"users", "dscl"}, {"users", "sysadminctl"}, {"notify", "osascript"}}
	case "windows":
		return [][2]string{{"firewall", "netsh"}, {"users", "net"}, {"notify", "msg"}}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Check which host tools foxter can use",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	})
}

type toolCheck struct {
	Feature string `json:"feature"`
	Tool    string `json:"tool"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	tools := toolsFor(goos)
	checks := make([]toolCheck, 0, len(tools))
	for _, t := range tools {
		c := toolCheck{Feature: t[0], Tool: t[1]}
		if p, err := runner.LookPath(t[1]); err == nil {
			c.Found, c.Path = true, p
		} else {
			logger.Debug("tool not found", "tool", t[1], "error", err)
		}
		checks = append(checks, c)
	}
	dir, _ := config.StateDir()

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"os":        goos,
			"version":   version,
			"state_dir": dir,
			"tools":     checks,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "foxter %s on %s\nState directory: %s\n\n", version, goos, dir)
	if len(checks) == 0 {
		fmt.Fprintln(out, "Host checks are not supported on this OS; file scanning still works")
		return nil
	}
	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		status := "missing"
		if c.Found {
			status = c.Path
		}
		rows = append(rows, []string{c.Feature, c.Tool, status})
	}
	if err := renderTable(out, []string{"Feature", "Tool", "Status"}, rows); err != nil {
		return err
	}
	for _, c := range checks {
		if c.Tool == "ufw" && !c.Found {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: ufw is not installed; install it with 'sudo apt-get install ufw'")
		}
	}
	return nil
}

package foxter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/foxter/foxter/internal/config"
	"github.com/foxter/foxter/internal/engine"
	"github.com/foxter/foxter/internal/ports"
	"github.com/foxter/foxter/internal/processes"
	"github.com/spf13/cobra"
)

var (
	cfgOutput     string
	cfgGlobal     bool
	cfgForce      bool
	cfgExclude    string
	cfgSignatures []string
	cfgNotify     bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .foxter.yml with the default settings",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().StringVar(&cfgOutput, "output", ".foxter.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgGlobal, "global", false, "write the global config instead")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&cfgExclude, "exclude", "", "comma-separated exclude globs")
	initCmd.Flags().StringSliceVar(&cfgSignatures, "signatures", nil, "extra signature files")
	initCmd.Flags().BoolVar(&cfgNotify, "notify", false, "send desktop notifications after scans")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgOutput
	if cfgGlobal {
		p, err := config.GlobalPath()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	}

	timeout := ports.DefaultTimeout.String()
	fc := config.FileConfig{
		Exclude:         optStrPtr(cfgExclude),
		Signatures:      cfgSignatures,
		BatchSize:       intPtr(engine.DefaultBatchSize),
		Notify:          boolPtr(cfgNotify),
		Ports:           ports.DefaultPorts,
		PortTimeout:     &timeout,
		PortWorkers:     intPtr(ports.DefaultWorkers),
		CPUThreshold:    floatPtr(processes.DefaultCPUThreshold),
		MemoryThreshold: floatPtr(processes.DefaultMemoryThreshold),
		SuspiciousNames: processes.DefaultSuspiciousNames,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := config.Save(path, fc); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	wd, _ := os.Getwd()
	lcfg, gcfg, err := loadConfigs(wd)
	if err != nil {
		return err
	}
	merged := config.FileConfig{
		Include:         pickPtr(lcfg.Include, gcfg.Include),
		Exclude:         pickPtr(lcfg.Exclude, gcfg.Exclude),
		Signatures:      append(append([]string{}, gcfg.Signatures...), lcfg.Signatures...),
		BatchSize:       pickPtr(lcfg.BatchSize, gcfg.BatchSize),
		QuarantineDir:   pickPtr(lcfg.QuarantineDir, gcfg.QuarantineDir),
		LogFile:         pickPtr(lcfg.LogFile, gcfg.LogFile),
		LogLevel:        pickPtr(lcfg.LogLevel, gcfg.LogLevel),
		NoColor:         pickPtr(lcfg.NoColor, gcfg.NoColor),
		Notify:          pickPtr(lcfg.Notify, gcfg.Notify),
		Ports:           pickList(nil, lcfg.Ports, gcfg.Ports),
		PortTimeout:     pickPtr(lcfg.PortTimeout, gcfg.PortTimeout),
		PortWorkers:     pickPtr(lcfg.PortWorkers, gcfg.PortWorkers),
		CPUThreshold:    pickPtr(lcfg.CPUThreshold, gcfg.CPUThreshold),
		MemoryThreshold: pickPtr(lcfg.MemoryThreshold, gcfg.MemoryThreshold),
		SuspiciousNames: pickList(nil, lcfg.SuspiciousNames, gcfg.SuspiciousNames),
	}
	if len(merged.Signatures) == 0 {
		merged.Signatures = nil
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), merged)
	}
	b, err := config.Marshal(merged)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(b)) == "{}" {
		fmt.Fprintln(cmd.OutOrStdout(), "# no configuration found; built-in defaults apply")
		return nil
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}

func pickPtr[T any](local, global *T) *T {
	if local != nil {
		return local
	}
	return global
}

func optStrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

package foxter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/foxter/foxter/internal/config"
	"github.com/foxter/foxter/internal/logging"
	"github.com/foxter/foxter/internal/sysexec"
	"github.com/spf13/cobra"
)

var (
	flagJSON          bool
	flagNoColor       bool
	flagConfig        string
	flagLogFile       string
	flagLogLevel      string
	flagNoUpdateCheck bool

	version = "0.1.0"

	// host integration points, swapped out in tests
	runner sysexec.Runner = sysexec.Exec{}
	goos                  = runtime.GOOS

	logger    *slog.Logger = logging.Discard()
	logCloser io.Closer
)

// exitError carries a non-default process exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// rootCmd is the base Cobra command for the foxter CLI.
var rootCmd = &cobra.Command{
	Use:               "foxter",
	Short:             "Scan files for known malware and check host hygiene",
	Long:              "foxter hashes files against a signature list, quarantines what it finds and checks the firewall, open ports, processes and local accounts.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the foxter CLI. It should be called by the main package.
func Execute() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	defer func() {
		if logCloser != nil {
			_ = logCloser.Close()
			logCloser = nil
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $XDG_CONFIG_HOME/foxter/config.yml)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "diagnostic log file, - for stderr (default <state dir>/foxter.log)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (default warn)")
	rootCmd.PersistentFlags().BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable update check")
}

// loadConfigs returns the local config found in dir and the global one, or
// the file named by --config in place of the global one.
func loadConfigs(dir string) (local, global config.FileConfig, err error) {
	if flagConfig != "" {
		global, err = config.LoadFile(flagConfig)
		if err != nil {
			return local, global, fmt.Errorf("load config: %w", err)
		}
	} else if c, gerr := config.LoadGlobal(); gerr == nil {
		global = c
	}
	if dir != "" {
		if c, lerr := config.LoadLocal(dir); lerr == nil {
			local = c
		}
	}
	return local, global, nil
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	wd, _ := os.Getwd()
	lcfg, gcfg, err := loadConfigs(wd)
	if err != nil {
		return err
	}
	file := pickString(flagLogFile, lcfg.LogFile, gcfg.LogFile)
	if file == "" {
		if dir, err := config.StateDir(); err == nil {
			file = filepath.Join(dir, logging.DefaultFileName)
		} else {
			file = "-"
		}
	}
	l, closer, err := logging.Setup(logging.Options{
		File:   file,
		Level:  pickString(flagLogLevel, lcfg.LogLevel, gcfg.LogLevel),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	return nil
}

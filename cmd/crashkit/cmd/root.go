// Package cmd implements the crashkit CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/crashkit/internal/config"
	"github.com/hugo-lorenzo-mato/crashkit/internal/dumpers"
	"github.com/hugo-lorenzo-mato/crashkit/internal/fatal"
	"github.com/hugo-lorenzo-mato/crashkit/internal/logging"
	"github.com/hugo-lorenzo-mato/crashkit/internal/reports"
	"github.com/hugo-lorenzo-mato/crashkit/internal/signals"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "crashkit",
	Short: "Process crash reporting: fatal-error handlers, reports, and a debug API",
	Long: `crashkit maintains a process-wide registry of fatal-error handlers.
Subsystems register diagnostic dumpers; when the process takes a fatal
signal or panics, every registered dumper writes its state into a crash
report, exactly once per crash episode.

Reports are persisted and catalogued so they can be inspected after the
fact with 'crashkit report' or through the debug HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .crashkit.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	return loader.Load()
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// bootstrap wires the process-wide registry: report store, stock
// dumpers per configuration, and the signal watcher. The returned
// function disarms the watcher.
func bootstrap(cfg *config.Config, logger *logging.Logger) (*fatal.Registry, *reports.Store, func(), error) {
	reg := fatal.Default()
	reg.SetEnabled(cfg.Crash.Enabled)

	store, err := reports.NewStore(cfg.Crash.Dir, cfg.Crash.MaxReports, logger.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening report store: %w", err)
	}

	reg.Register(dumpers.NewBuildInfo(appVersion))
	reg.Register(dumpers.NewRuntime())
	reg.Register(dumpers.NewGoroutines(cfg.Crash.StackBufKB * 1024))
	reg.Register(dumpers.NewSystem())
	if cfg.Crash.IncludeHost {
		reg.Register(dumpers.NewHost())
	}
	if cfg.Crash.IncludeEnv {
		reg.Register(dumpers.NewEnvironment(os.Environ()))
	}

	uninstall := signals.Install(reg, store, logger.Logger)
	return reg, store, uninstall, nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run a synthetic crash episode through the full pipeline",
	Long: `Run a synthetic crash episode: register the stock dumpers, write a
crash report through the registry, and catalog it. Useful to verify
the configuration before relying on it in production.`,
	RunE: runSelftest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}

func runSelftest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	reg, store, uninstall, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer uninstall()
	defer func() { _ = store.Close() }()

	f, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening report file: %w", err)
	}
	fmt.Fprintln(f, "selftest: synthetic crash episode")
	handlers := reg.InvokeHandlers(f)
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing report file: %w", err)
	}

	if _, err := store.Scan(cmd.Context()); err != nil {
		return fmt.Errorf("cataloging report: %w", err)
	}
	latest, err := store.Latest(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info("selftest complete",
		"handlers", handlers,
		"report", latest.ID,
		"dir", store.Dir(),
	)
	fmt.Printf("wrote crash report %s (%d handlers)\n", latest.ID, handlers)
	return nil
}

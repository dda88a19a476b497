package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/crashkit/internal/config"
	"github.com/hugo-lorenzo-mato/crashkit/internal/fatal"
	"github.com/hugo-lorenzo-mato/crashkit/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the crash-report debug server",
	Long: `Run the debug HTTP server. It exposes the registry status and the
crash-report catalog, and keeps the signal watcher armed so crashes of
the server itself produce reports too.

Examples:
  # Start with defaults (localhost:8085)
  crashkit serve

  # Start on a custom host and port
  crashkit serve --host 0.0.0.0 --port 9090`,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "localhost",
		"host address to bind to")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8085,
		"port to listen on")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false,
		"disable CORS headers")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	// Catalog whatever previous crashes left behind.
	if indexed, err := store.Scan(cmd.Context()); err != nil {
		logger.Warn("scanning report directory", "error", err)
	} else if indexed > 0 {
		logger.Info("indexed crash reports from previous runs", "count", indexed)
	}

	serverCfg := web.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.EnableCORS = cfg.Server.EnableCORS && !serveNoCORS
	serverCfg.CORSOrigins = cfg.Server.CORSOrigins

	server := web.New(serverCfg, logger.WithComponent("web").Logger, reg, store)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	// Re-apply the crash toggle when the config file changes.
	if path := viper.ConfigFileUsed(); path != "" {
		loader := config.NewLoaderWithViper(viper.GetViper())
		watcher, err := config.NewWatcher(path, loader, logger.WithComponent("config").Logger,
			func(updated *config.Config) {
				fatal.SetEnabled(updated.Crash.Enabled)
			})
		if err != nil {
			logger.Warn("config watcher unavailable", "error", err)
		} else {
			g.Go(func() error {
				<-ctx.Done()
				watcher.Stop()
				return nil
			})
		}
	}

	return g.Wait()
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/snapfiles/internal/logger"
	"github.com/marmos91/snapfiles/pkg/command"
	"github.com/marmos91/snapfiles/pkg/config"
	"github.com/marmos91/snapfiles/pkg/server"
	"github.com/spf13/cobra"
)

var (
	trace bool
	port  int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the SnapFiles server",
	Long: `Start the SnapFiles server in the foreground.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/snapfiles/config.yaml. Without any
configuration file the built-in defaults are used.

The --trace and --port flags belong to the start command, so they follow it
on the command line: "snapfiles start -t", not "snapfiles -t".

Examples:
  # Start with defaults on port 7083
  snapfiles start

  # Start on another port with debug logging
  snapfiles start --port 8000 --trace

  # Start with environment variable overrides
  SNAPFILES_STORAGE_TYPE=memory snapfiles start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&trace, "trace", "t", false, "Enable debug logging")
	startCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: server.port from config, 7083)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	fmt.Printf("SnapFiles %s\n", Version)
	logger.Info("Log level: %s (format: %s)", cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", getConfigSource(GetConfigFile()))

	// Metrics come first so the dispatcher and adapter get real collectors.
	metricsResult := config.InitializeMetrics(cfg)

	cache, err := config.CreateHandleCache(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	dispatcher := command.New(cache, command.ServerInfo{}, metricsResult.CommandMetrics)
	srv := server.New(cache, dispatcher)

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled on port %d", cfg.Metrics.Port)
		srv.SetMetricsServer(metricsResult.Server)
	} else {
		logger.Info("Metrics collection disabled")
	}

	for _, a := range config.CreateAdapters(cfg, metricsResult.HTTPMetrics) {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Serving files from %s on port %d. Press Ctrl+C to stop.",
		cache.Resolver().Root(), cfg.Server.Port)

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error: %v", err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// applyFlagOverrides layers the start flags over the loaded configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if trace {
		cfg.Logging.Level = "DEBUG"
	}

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid --port: %w", err)
		}
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frontend-infra/nginx-log-exporter/internal/config"
	"github.com/frontend-infra/nginx-log-exporter/internal/exporter"
	"github.com/frontend-infra/nginx-log-exporter/internal/histogram"
	"github.com/frontend-infra/nginx-log-exporter/internal/logging"
	"github.com/frontend-infra/nginx-log-exporter/internal/metrics"
	"github.com/frontend-infra/nginx-log-exporter/pkg/api"
)

// Version is set by the build via -ldflags.
var Version = "dev"

var (
	cfgFile  string
	logPath  string
	listen   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "nginx-log-exporter",
	Short: "Prometheus exporter for nginx JSON access logs",
	Long: `nginx-log-exporter tails nginx access logs written in JSON format and
exposes per-request duration histograms labelled by method, path, status
class, and host. Log files are read incrementally on each scrape, with
rotation detected by inode and size.`,
	SilenceUsage: true,
	Version:      Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to YAML configuration file")
	rootCmd.Flags().StringVar(&logPath, "log-path", "", "glob pattern of nginx access logs to tail")
	rootCmd.Flags().StringVar(&listen, "listen", "", "address to serve metrics on")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

// run builds the configuration in precedence order (defaults, file,
// environment, flags) and serves until interrupted.
func run(cmd *cobra.Command) error {
	cfg := config.NewDefault()

	if cfgFile != "" {
		if err := cfg.LoadFromFile(cfgFile); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	if cmd.Flags().Changed("log-path") {
		cfg.Tail.Pattern = logPath
	}
	if cmd.Flags().Changed("listen") {
		cfg.Server.Address = listen
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("pattern", cfg.Tail.Pattern).
		Str("address", cfg.Server.Address).
		Msg("starting nginx-log-exporter")

	collector, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("registering exporter metrics: %w", err)
	}

	engine := exporter.New(exporter.Options{
		Pattern: cfg.Tail.Pattern,
		Buckets: histogram.Exponential(cfg.Buckets.Start, cfg.Buckets.Factor, cfg.Buckets.Count),
		Logger:  logger,
		Metrics: collector,
	})

	api.Version = Version
	server := api.NewServer(api.ServerConfig{
		Address:      cfg.Server.Address,
		MetricsPath:  cfg.Server.MetricsPath,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, engine, collector, logger)

	server.StartBackground()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

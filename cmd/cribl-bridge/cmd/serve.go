package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/cribl-bridge/internal/config"
	"github.com/HendryAvila/cribl-bridge/internal/server"
	"github.com/HendryAvila/cribl-bridge/internal/telemetry"
	"github.com/HendryAvila/cribl-bridge/internal/updater"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the MCP server on stdin/stdout.

Logs go to stderr so they never mix with the protocol stream. When
metrics_addr is set, Prometheus metrics are served on /metrics.`,
	RunE: runServe,
}

var noUpdateCheck bool

func init() {
	serveCmd.Flags().BoolVar(&noUpdateCheck, "no-update-check", false, "skip the background check for a newer release")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()

	shutdownTracing, err := telemetry.InstallTracing(cfg.Trace, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := telemetry.ServeMetrics(ctx, cfg.MetricsAddr, reg, logger); err != nil {
				logger.Error("metrics listener stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	if !noUpdateCheck {
		go checkForUpdates(ctx, logger)
	}

	s, err := server.New(cfg, server.Deps{
		Logger:     logger,
		Metrics:    metrics,
		HTTPClient: &http.Client{},
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("cribl-bridge starting",
		"version", server.Version,
		"base_url", cfg.BaseURL,
		"auth_type", cfg.AuthType,
	)

	stdio := mcpserver.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(handler, slog.LevelError))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("cribl-bridge stopped")
	return nil
}

// checkForUpdates logs a notice when a newer release exists. Failures are
// logged at debug level only.
func checkForUpdates(ctx context.Context, logger *slog.Logger) {
	result, err := updater.CheckVersion(ctx, server.Version)
	if err != nil {
		logger.Debug("update check failed", "error", err)
		return
	}
	if result.UpdateAvailable {
		logger.Info("update available",
			"current", result.CurrentVersion,
			"latest", result.LatestVersion,
			"release", result.ReleaseURL,
			"hint", "run: cribl-bridge update",
		)
	}
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goutils "github.com/jkaninda/go-utils"
	"github.com/spf13/cobra"

	"github.com/jkaninda/mcp-secrets/internal/config"
	"github.com/jkaninda/mcp-secrets/internal/dialog"
	"github.com/jkaninda/mcp-secrets/internal/keyring"
	"github.com/jkaninda/mcp-secrets/internal/mcpserver"
	"github.com/jkaninda/mcp-secrets/internal/observability"
	"github.com/jkaninda/mcp-secrets/internal/secrets"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP secrets server (stdio, or streamable HTTP when a port is configured)",
	RunE:  runServe,
}

func init() {
	// Register flags on both root and serve so that
	// `mcp-secrets --config path` and `mcp-secrets serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", "", "path to config file (optional)")
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(goutils.Env("MCP_SECRETS_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	var metrics *observability.MetricsCollector
	if cfg.MetricsAddr != "" {
		metrics = observability.NewMetricsCollector()
	}

	var ring keyring.Keyring
	switch cfg.KeyringBackend {
	case "memory":
		logger.Warn("using in-memory keyring, secrets will not survive restart")
		ring = keyring.NewMemory()
	default:
		ring = keyring.NewSystem()
	}

	runner, err := dialog.NewProcessRunner(cfg.DialogBinary, logger)
	if err != nil {
		return fmt.Errorf("configuring collector runner: %w", err)
	}

	manager, err := secrets.NewManager(cfg.Name, secrets.ManagerOptions{
		Ring:    ring,
		Runner:  runner,
		Bypass:  cfg.BypassPermissions,
		Wipe:    cfg.WipeOnStart,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("initializing credential manager: %w", err)
	}
	if cfg.BypassPermissions {
		logger.Warn("permission prompts disabled by operator bypass flag")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics := metrics.StartMetricsServer(cfg.MetricsAddr, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownMetrics(shutdownCtx)
	}()

	srv := mcpserver.New(cfg, manager, version, logger)
	return srv.Run(ctx)
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	regapp "github.com/mcpf-dev/trust-registry/internal/app"
	"github.com/mcpf-dev/trust-registry/internal/config"
	"github.com/mcpf-dev/trust-registry/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trust registry API server",
	Long: `Start the trust registry API server to serve MCP server registry data.

The server requires a configuration file (--config) that specifies:
- The Postgres database connection settings
- The listen address and trust-anchor issuer identity
- Tracing settings

See the examples/ directory for a sample configuration.`,
	RunE: runServe,
}

// Kubernetes-friendly shutdown time
const defaultGracefulTimeout = 30 * time.Second

func init() {
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"address", cfg.Server.Address,
		"database", fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))

	tracing, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	application, err := regapp.New(ctx,
		regapp.WithConfig(cfg),
		regapp.WithTracer(tracing.Tracer("mcpf-registry")),
	)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig.String())
	}

	if err := application.Stop(defaultGracefulTimeout); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down tracing", "error", err)
	}

	return nil
}

// Package app provides application lifecycle management for the trust
// registry server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcpf-dev/trust-registry/internal/config"
)

// App encapsulates all components needed to run the registry API server.
// It provides lifecycle management and graceful shutdown capabilities.
type App struct {
	config     *config.Config
	components *Components
	httpServer *http.Server

	cancelFunc context.CancelFunc
}

// Start starts the HTTP server. This method blocks until the server stops
// or encounters an error.
func (app *App) Start() error {
	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the application with the given timeout, shutting
// down the HTTP server and closing the database pool.
func (app *App) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if app.components.Pool != nil {
		app.components.Pool.Close()
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *App) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *App) GetHTTPServer() *http.Server {
	return app.httpServer
}

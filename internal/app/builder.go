package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcpf-dev/trust-registry/internal/api"
	"github.com/mcpf-dev/trust-registry/internal/config"
	"github.com/mcpf-dev/trust-registry/internal/service"
	dbservice "github.com/mcpf-dev/trust-registry/internal/service/db"
	"github.com/mcpf-dev/trust-registry/internal/service/trust"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	// Must be > defaultRequestTimeout to let middleware handle the timeout
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Option is a function that configures the app builder
type Option func(*appConfig) error

// appConfig collects the settings and optional component overrides used to
// assemble an App.
type appConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	registryService service.RegistryService
	trustService    service.TrustService

	tracer      trace.Tracer
	middlewares []func(http.Handler) http.Handler

	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

// WithConfig sets the application configuration. Required unless a registry
// service override is provided.
func WithConfig(cfg *config.Config) Option {
	return func(ac *appConfig) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		ac.config = cfg
		return nil
	}
}

// WithRegistryService injects a registry service, bypassing database setup.
func WithRegistryService(svc service.RegistryService) Option {
	return func(ac *appConfig) error {
		if svc == nil {
			return fmt.Errorf("registry service cannot be nil")
		}
		ac.registryService = svc
		return nil
	}
}

// WithTrustService injects a trust service override.
func WithTrustService(svc service.TrustService) Option {
	return func(ac *appConfig) error {
		if svc == nil {
			return fmt.Errorf("trust service cannot be nil")
		}
		ac.trustService = svc
		return nil
	}
}

// WithTracer sets the tracer handed to the database service.
func WithTracer(tracer trace.Tracer) Option {
	return func(ac *appConfig) error {
		ac.tracer = tracer
		return nil
	}
}

// WithMiddlewares appends HTTP middleware to the server chain.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(ac *appConfig) error {
		ac.middlewares = append(ac.middlewares, mw...)
		return nil
	}
}

// New assembles an App from the given options: database pool, registry and
// trust services, router, and HTTP server.
func New(ctx context.Context, opts ...Option) (*App, error) {
	ac := &appConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(ac); err != nil {
			return nil, err
		}
	}

	if ac.config == nil && ac.registryService == nil {
		return nil, fmt.Errorf("either a config or a registry service is required")
	}

	components := &Components{
		RegistryService: ac.registryService,
		TrustService:    ac.trustService,
	}

	// Single decision point for storage: injected service or Postgres.
	if components.RegistryService == nil {
		pool, err := connectPool(ctx, ac.config.Database)
		if err != nil {
			return nil, err
		}

		svc, err := dbservice.New(
			dbservice.WithConnectionPool(pool),
			dbservice.WithTracer(ac.tracer),
		)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create registry service: %w", err)
		}

		components.Pool = pool
		components.RegistryService = svc
	}

	if components.TrustService == nil {
		var trustOpts []trust.Option
		if ac.config != nil {
			trustOpts = append(trustOpts, trust.WithIssuer(
				ac.config.Trust.IssuerDID,
				ac.config.Trust.IssuerName,
				ac.config.Trust.IssuerDocs,
			))
		}
		components.TrustService = trust.New(trustOpts...)
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(ac.requestTimeout),
		api.LoggingMiddleware,
	}
	middlewares = append(middlewares, ac.middlewares...)

	router := api.NewServer(
		components.RegistryService,
		components.TrustService,
		api.WithMiddlewares(middlewares...),
	)

	address := ":8080"
	if ac.config != nil {
		address = ac.config.Server.Address
	}

	appCtx, cancel := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  ac.readTimeout,
		WriteTimeout: ac.writeTimeout,
		IdleTimeout:  ac.idleTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return appCtx },
	}

	return &App{
		config:     ac.config,
		components: components,
		httpServer: httpServer,
		cancelFunc: cancel,
	}, nil
}

// connectPool opens and verifies a pgx connection pool from the database
// configuration.
func connectPool(ctx context.Context, dbCfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if dbCfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	connStr, err := dbCfg.ConnString()
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if dbCfg.MaxConns > 0 {
		poolCfg.MaxConns = dbCfg.MaxConns
	}
	if dbCfg.MinConns > 0 {
		poolCfg.MinConns = dbCfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

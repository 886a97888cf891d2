// Package database provides a Postgres-backed implementation of the
// RegistryService interface.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcpf-dev/trust-registry/internal/otel"
	"github.com/mcpf-dev/trust-registry/internal/registry"
	"github.com/mcpf-dev/trust-registry/internal/service"
)

// options holds configuration options for the database service
type options struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// Option is a functional option for configuring the database service
type Option func(*options) error

// WithConnectionPool creates a new database-backed registry service with the
// given pgx pool. The caller is responsible for closing the pool when it is
// done.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the database service.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// dbService implements the RegistryService interface using a database backend
type dbService struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

var _ service.RegistryService = (*dbService)(nil)

// New creates a new database-backed registry service with the given options
func New(opts ...Option) (service.RegistryService, error) {
	o := &options{}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.pool == nil {
		return nil, fmt.Errorf("a connection pool is required, use WithConnectionPool")
	}

	return &dbService{
		pool:   o.pool,
		tracer: o.tracer,
	}, nil
}

func (s *dbService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.StartSpan(ctx, s.tracer, name)
}

// CheckReadiness checks if the service is ready to serve requests
func (s *dbService) CheckReadiness(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// ListServers returns one page of entries in descending created_at order
// plus the full unfiltered row count. The count and page queries run as
// independent statements, so under concurrent writes they may observe
// different snapshots.
func (s *dbService) ListServers(
	ctx context.Context,
	page, limit int,
) (*registry.PaginatedServers, error) {
	ctx, span := s.startSpan(ctx, "dbService.ListServers")
	defer span.End()

	page, limit, offset := registry.ListParams(page, limit)

	span.SetAttributes(
		otel.AttrPage.Int(page),
		otel.AttrPageSize.Int(limit),
	)

	slog.DebugContext(ctx, "ListServers query",
		"page", page,
		"limit", limit,
		"offset", offset,
		"request_id", middleware.GetReqID(ctx))

	items, err := s.queryEntries(ctx, registry.ListQuery, limit, offset)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, registry.CountQuery).Scan(&total); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to count servers: %w", err)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(items)))

	return &registry.PaginatedServers{
		Page:  page,
		Limit: limit,
		Total: total,
		Items: items,
	}, nil
}

// GetServerByDID returns the entry for the given DID, or ErrServerNotFound.
func (s *dbService) GetServerByDID(
	ctx context.Context,
	did string,
) (*registry.RegistryEntry, error) {
	ctx, span := s.startSpan(ctx, "dbService.GetServerByDID")
	defer span.End()

	span.SetAttributes(otel.AttrDID.String(did))

	row, err := scanStoredRow(s.pool.QueryRow(ctx, registry.GetByDIDQuery, did))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrServerNotFound
		}
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get server %q: %w", did, err)
	}

	return registry.DecodeRow(row), nil
}

// SearchServers returns entries matching the conjunction of the set filter
// keys, in descending recency order, capped at registry.MaxPageSize.
func (s *dbService) SearchServers(
	ctx context.Context,
	filters registry.SearchFilters,
) ([]*registry.RegistryEntry, error) {
	ctx, span := s.startSpan(ctx, "dbService.SearchServers")
	defer span.End()

	sql, args := registry.SearchQuery(filters)
	span.SetAttributes(otel.AttrFilterCount.Int(len(args)))

	slog.DebugContext(ctx, "SearchServers query",
		"filter_count", len(args),
		"request_id", middleware.GetReqID(ctx))

	items, err := s.queryEntries(ctx, sql, args...)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to search servers: %w", err)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(items)))
	return items, nil
}

// UpsertServer creates or fully replaces the entry keyed by its DID. On
// conflict every mutable column is overwritten and updated_at refreshes;
// created_at stays as first written.
func (s *dbService) UpsertServer(
	ctx context.Context,
	entry *registry.RegistryEntry,
) (*registry.UpsertResult, error) {
	ctx, span := s.startSpan(ctx, "dbService.UpsertServer")
	defer span.End()

	span.SetAttributes(otel.AttrDID.String(entry.DID))

	params := registry.EncodeWriteParams(entry)
	if _, err := s.pool.Exec(ctx, registry.UpsertQuery, params...); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to upsert server %q: %w", entry.DID, err)
	}

	slog.DebugContext(ctx, "UpsertServer completed",
		"did", entry.DID,
		"request_id", middleware.GetReqID(ctx))

	return &registry.UpsertResult{Status: "ok", DID: entry.DID}, nil
}

// queryEntries runs a select over the registry columns and decodes every
// row. No rows yields an empty slice, not nil.
func (s *dbService) queryEntries(
	ctx context.Context,
	sql string,
	args ...any,
) ([]*registry.RegistryEntry, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*registry.RegistryEntry{}
	for rows.Next() {
		row, err := scanStoredRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, registry.DecodeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// rowScanner matches both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStoredRow scans one mcp_registry row in select-column order.
func scanStoredRow(r rowScanner) (registry.StoredRow, error) {
	var row registry.StoredRow
	err := r.Scan(
		&row.DID,
		&row.Endpoint,
		&row.Manifest,
		&row.Credentials,
		&row.MetaCapabilities,
		&row.MetaOrganization,
		&row.MetaCountry,
		&row.MetaTags,
		&row.MetaStatus,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	return row, err
}

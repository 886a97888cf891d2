// Package service defines the business-logic interface for the trust
// registry: the four store operations plus the trust-anchor listings.
package service

import (
	"context"
	"errors"

	"github.com/mcpf-dev/trust-registry/internal/registry"
)

var (
	// ErrServerNotFound is returned when no entry exists for a DID.
	ErrServerNotFound = errors.New("server not found")
)

// RegistryService defines the interface for registry operations. Handlers
// exchange plain registry types with it; no transport types cross this
// boundary.
type RegistryService interface {
	// CheckReadiness checks if the service is ready to serve requests.
	CheckReadiness(ctx context.Context) error

	// ListServers returns one page of entries in descending recency order
	// together with the full unfiltered row count.
	ListServers(ctx context.Context, page, limit int) (*registry.PaginatedServers, error)

	// GetServerByDID returns the entry for the given DID, or
	// ErrServerNotFound when no row matches.
	GetServerByDID(ctx context.Context, did string) (*registry.RegistryEntry, error)

	// SearchServers returns entries matching the conjunction of the set
	// filter keys, capped at registry.MaxPageSize.
	SearchServers(ctx context.Context, filters registry.SearchFilters) ([]*registry.RegistryEntry, error)

	// UpsertServer creates or fully replaces the entry keyed by its DID.
	UpsertServer(ctx context.Context, entry *registry.RegistryEntry) (*registry.UpsertResult, error)
}

// TrustService provides the trust-anchor listings. Both operations are pure
// placeholders for a future verification subsystem.
type TrustService interface {
	// ListIssuers returns the trusted credential issuers.
	ListIssuers() registry.IssuerList

	// GetRevocations returns the revoked servers and credentials.
	GetRevocations() registry.RevocationStatus
}

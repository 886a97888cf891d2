package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcpf-dev/trust-registry/internal/service"
)

// Components groups all application components
type Components struct {
	// RegistryService provides the registry store operations
	RegistryService service.RegistryService

	// TrustService provides the issuer and revocation listings
	TrustService service.TrustService

	// Pool is the database connection pool (nil when an injected service
	// owns its own storage)
	Pool *pgxpool.Pool
}

package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpf-dev/trust-registry/database"
	"github.com/mcpf-dev/trust-registry/internal/registry"
	"github.com/mcpf-dev/trust-registry/internal/service"
)

// setupTestService creates a test database service with a migrated database
func setupTestService(t *testing.T) (*dbService, *pgxpool.Pool) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)

	connStr := db.Config().ConnString()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &dbService{pool: pool}, pool
}

func testEntry(did string) *registry.RegistryEntry {
	return &registry.RegistryEntry{
		DID:      did,
		Endpoint: fmt.Sprintf("https://%s.example.com/mcp", did),
		Manifest: fmt.Sprintf("https://%s.example.com/mcp/manifest.json", did),
		Credentials: []registry.Credential{{
			Issuer:        "did:web:veritrust.vc",
			Type:          "MCPServerCredential",
			CredentialURL: fmt.Sprintf("https://%s.example.com/mcp/credential.json", did),
		}},
		Metadata: registry.Metadata{
			Capabilities: []string{"getCurrentWeather", "getForecast"},
			Organization: "National Weather Service",
			Country:      "US",
			Tags:         []string{"weather", "public-data"},
			Status:       "active",
		},
	}
}

func TestUpsertAndGet(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	entry := testEntry("did:web:weather")

	result, err := svc.UpsertServer(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, entry.DID, result.DID)

	got, err := svc.GetServerByDID(ctx, entry.DID)
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestGetServerNotFound(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.GetServerByDID(context.Background(), "did:unknown")
	require.ErrorIs(t, err, service.ErrServerNotFound)
}

func TestUpsertIdempotent(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	entry := testEntry("did:web:weather")

	_, err := svc.UpsertServer(ctx, entry)
	require.NoError(t, err)
	_, err = svc.UpsertServer(ctx, entry)
	require.NoError(t, err)

	// No duplicate rows; did uniqueness holds.
	page, err := svc.ListServers(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, entry, page.Items[0])
}

func TestUpsertReplaces(t *testing.T) {
	svc, pool := setupTestService(t)
	ctx := context.Background()

	first := testEntry("did:web:weather")
	_, err := svc.UpsertServer(ctx, first)
	require.NoError(t, err)

	var createdAt, updatedAt any
	err = pool.QueryRow(ctx,
		"SELECT created_at, updated_at FROM mcp_registry WHERE did = $1", first.DID,
	).Scan(&createdAt, &updatedAt)
	require.NoError(t, err)

	second := testEntry("did:web:weather")
	second.Endpoint = "https://weather-v2.example.com/mcp"
	second.Metadata.Tags = []string{"weather"}
	_, err = svc.UpsertServer(ctx, second)
	require.NoError(t, err)

	got, err := svc.GetServerByDID(ctx, first.DID)
	require.NoError(t, err)

	// Full overwrite, not merge.
	assert.Equal(t, "https://weather-v2.example.com/mcp", got.Endpoint)
	assert.Equal(t, []string{"weather"}, got.Metadata.Tags)

	var createdAfter any
	err = pool.QueryRow(ctx,
		"SELECT created_at FROM mcp_registry WHERE did = $1", first.DID,
	).Scan(&createdAfter)
	require.NoError(t, err)
	assert.Equal(t, createdAt, createdAfter, "created_at is immutable once set")
}

func TestDefaultStatus(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	entry := testEntry("did:web:nostatus")
	entry.Metadata.Status = ""

	_, err := svc.UpsertServer(ctx, entry)
	require.NoError(t, err)

	got, err := svc.GetServerByDID(ctx, entry.DID)
	require.NoError(t, err)
	assert.Equal(t, registry.StatusActive, got.Metadata.Status)
}

func TestSearchContainment(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	a := testEntry("did:web:a")
	a.Metadata.Capabilities = []string{"a", "b"}
	b := testEntry("did:web:b")
	b.Metadata.Capabilities = []string{"b", "c"}

	for _, e := range []*registry.RegistryEntry{a, b} {
		_, err := svc.UpsertServer(ctx, e)
		require.NoError(t, err)
	}

	both, err := svc.SearchServers(ctx, registry.SearchFilters{Capability: "b"})
	require.NoError(t, err)
	assert.Len(t, both, 2)

	none, err := svc.SearchServers(ctx, registry.SearchFilters{Capability: "z"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchConjunction(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	us := testEntry("did:web:us")
	us.Metadata.Country = "US"
	eu := testEntry("did:web:eu")
	eu.Metadata.Country = "EU"
	eu.Metadata.Organization = "Example Cloud Storage"

	for _, e := range []*registry.RegistryEntry{us, eu} {
		_, err := svc.UpsertServer(ctx, e)
		require.NoError(t, err)
	}

	got, err := svc.SearchServers(ctx, registry.SearchFilters{
		Tag:     "weather",
		Country: "EU",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "did:web:eu", got[0].DID)

	// Zero filters return the whole table.
	all, err := svc.SearchServers(ctx, registry.SearchFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListPagination(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := svc.UpsertServer(ctx, testEntry(fmt.Sprintf("did:web:server-%02d", i)))
		require.NoError(t, err)
	}

	page1, err := svc.ListServers(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page1.Page)
	assert.Equal(t, 10, page1.Limit)
	assert.Equal(t, 15, page1.Total)
	assert.Len(t, page1.Items, 10)

	page2, err := svc.ListServers(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 15, page2.Total, "total reflects the full count regardless of page")
	assert.Len(t, page2.Items, 5)

	// Pages do not overlap.
	seen := map[string]bool{}
	for _, e := range page1.Items {
		seen[e.DID] = true
	}
	for _, e := range page2.Items {
		assert.False(t, seen[e.DID], "entry %s appeared on both pages", e.DID)
	}
}

func TestListClampsBounds(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertServer(ctx, testEntry("did:web:one"))
	require.NoError(t, err)

	page, err := svc.ListServers(ctx, -5, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, registry.DefaultPageSize, page.Limit)
	assert.Len(t, page.Items, 1)

	capped, err := svc.ListServers(ctx, 1, 100000)
	require.NoError(t, err)
	assert.Equal(t, registry.MaxPageSize, capped.Limit)
}

func TestTolerantDecodeOfStoredGarbage(t *testing.T) {
	svc, pool := setupTestService(t)
	ctx := context.Background()

	// A legacy row whose meta_tags holds a JSON string of unparseable text.
	_, err := pool.Exec(ctx, `
		INSERT INTO mcp_registry (did, endpoint, manifest, meta_tags)
		VALUES ($1, $2, $3, to_jsonb('[unparseable'::text))`,
		"did:web:legacy", "https://legacy.example.com/mcp",
		"https://legacy.example.com/mcp/manifest.json")
	require.NoError(t, err)

	got, err := svc.GetServerByDID(ctx, "did:web:legacy")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Metadata.Tags, "unparseable tags degrade to empty, not an error")
	assert.Equal(t, registry.StatusActive, got.Metadata.Status)
}

func TestCheckReadiness(t *testing.T) {
	svc, _ := setupTestService(t)
	require.NoError(t, svc.CheckReadiness(context.Background()))
}

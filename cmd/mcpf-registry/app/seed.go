package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mcpf-dev/trust-registry/internal/config"
	"github.com/mcpf-dev/trust-registry/internal/registry"
	dbservice "github.com/mcpf-dev/trust-registry/internal/service/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load example servers into the registry",
	Long: `Load a small set of example MCP servers into the registry database.
Existing entries with the same DID are replaced. Intended for development
and demo environments.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	if err := seedCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
}

// seedEntries mirrors the example servers shipped with the upstream registry.
func seedEntries() []*registry.RegistryEntry {
	credential := func(host string) []registry.Credential {
		return []registry.Credential{{
			Issuer:        "did:web:veritrust.vc",
			Type:          "MCPServerCredential",
			CredentialURL: fmt.Sprintf("https://%s/mcp/credential.json", host),
		}}
	}

	return []*registry.RegistryEntry{
		{
			DID:         "did:web:weather.example.com:mcp:api",
			Endpoint:    "https://weather.example.com/mcp",
			Manifest:    "https://weather.example.com/mcp/manifest.json",
			Credentials: credential("weather.example.com"),
			Metadata: registry.Metadata{
				Capabilities: []string{"getCurrentWeather", "getForecast", "getAlerts"},
				Organization: "National Weather Service",
				Country:      "US",
				Tags:         []string{"weather", "public-data", "free-tier"},
				Status:       registry.StatusActive,
			},
		},
		{
			DID:         "did:web:database.example.com:mcp:query",
			Endpoint:    "https://database.example.com/mcp",
			Manifest:    "https://database.example.com/mcp/manifest.json",
			Credentials: credential("database.example.com"),
			Metadata: registry.Metadata{
				Capabilities: []string{"query", "schema", "analyze"},
				Organization: "Example Database Corp",
				Country:      "US",
				Tags:         []string{"database", "sql", "enterprise"},
				Status:       registry.StatusActive,
			},
		},
		{
			DID:         "did:web:filesystem.example.com:mcp:api",
			Endpoint:    "https://filesystem.example.com/mcp",
			Manifest:    "https://filesystem.example.com/mcp/manifest.json",
			Credentials: credential("filesystem.example.com"),
			Metadata: registry.Metadata{
				Capabilities: []string{"readFile", "writeFile", "listDirectory"},
				Organization: "Example Cloud Storage",
				Country:      "EU",
				Tags:         []string{"filesystem", "storage", "cloud"},
				Status:       registry.StatusActive,
			},
		},
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	connString, err := cfg.Database.ConnString()
	if err != nil {
		return fmt.Errorf("failed to build connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	svc, err := dbservice.New(dbservice.WithConnectionPool(pool))
	if err != nil {
		return fmt.Errorf("failed to create registry service: %w", err)
	}

	slog.Info("Seeding registry with example servers...")
	for _, entry := range seedEntries() {
		if _, err := svc.UpsertServer(ctx, entry); err != nil {
			return fmt.Errorf("failed to seed %s: %w", entry.DID, err)
		}
		slog.Info("Registered example server", "did", entry.DID)
	}

	slog.Info("Seeding complete", "count", len(seedEntries()))
	return nil
}

// Package config provides configuration loading and management for the
// trust registry server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variables used by the registry.
const EnvPrefix = "MCPF_REGISTRY"

// envPasswordVar is the environment variable holding the database password
// when no password file is configured.
const envPasswordVar = EnvPrefix + "_DATABASE_PASSWORD"

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Server holds the HTTP server settings
	Server ServerConfig `yaml:"server,omitempty"`

	// Database holds the Postgres connection settings
	Database *DatabaseConfig `yaml:"database,omitempty"`

	// Trust holds the trust-anchor settings (issuer identity)
	Trust TrustConfig `yaml:"trust,omitempty"`

	// Telemetry holds the tracing settings
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080"
	Address string `yaml:"address,omitempty"`
}

// TrustConfig defines the identity of the trusted credential issuer served
// by the issuers endpoint.
type TrustConfig struct {
	IssuerDID  string `yaml:"issuerDid,omitempty"`
	IssuerName string `yaml:"issuerName,omitempty"`
	IssuerDocs string `yaml:"issuerDocs,omitempty"`
}

// TelemetryConfig defines distributed tracing settings
type TelemetryConfig struct {
	// TracingEnabled turns span export on
	TracingEnabled bool `yaml:"tracingEnabled,omitempty"`

	// OTLPEndpoint is the OTLP HTTP collector endpoint, host:port
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns is the maximum number of connections in the pool
	MaxConns int32 `yaml:"maxConns,omitempty"`

	// MinConns is the minimum number of idle connections kept in the pool
	MinConns int32 `yaml:"minConns,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the MCPF_REGISTRY_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	// Priority 1: Read from file if specified
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	// Priority 2: Environment variable
	if password := os.Getenv(envPasswordVar); password != "" {
		return password, nil
	}

	return "", fmt.Errorf("no database password configured: set passwordFile or %s", envPasswordVar)
}

// ConnString returns a keyword/value connection string suitable for pgxpool.
func (d *DatabaseConfig) ConnString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	// Note: password is not escaped here because the pgx keyword/value
	// parser takes it verbatim.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, password, d.Database, sslMode,
	), nil
}

// MigrationURL returns a URL-form connection string for the migration
// tooling, which dials through the pgx/v5 migrate driver.
func (d *DatabaseConfig) MigrationURL() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(d.User, password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String(), nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database port is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

// applyDefaults fills in unset optional fields
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	// The issuer DID can come from the environment, mirroring the upstream
	// MCPF_ISSUER_DID setting.
	if c.Trust.IssuerDID == "" {
		c.Trust.IssuerDID = os.Getenv(EnvPrefix + "_ISSUER_DID")
	}
}

// LoadConfig loads configuration using the given options
func LoadConfig(opts ...Option) (*Config, error) {
	loader := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loader); err != nil {
			return nil, err
		}
	}
	if loader.path == "" {
		return nil, fmt.Errorf("no configuration source specified")
	}

	data, err := os.ReadFile(loader.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

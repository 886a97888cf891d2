// Package registry defines the registry entry model and the conversion and
// query-building logic between the external JSON shape and the stored row.
package registry

// StatusActive is the default status for registry entries.
const StatusActive = "active"

// Credential is a structured claim attesting to a server's trustworthiness.
// It is opaque to the registry; no verification happens at this layer.
type Credential struct {
	Issuer        string `json:"issuer,omitempty"`
	Type          string `json:"type,omitempty"`
	CredentialURL string `json:"credentialUrl,omitempty"`
}

// Metadata holds the descriptive metadata of a registry entry.
type Metadata struct {
	Capabilities []string `json:"capabilities"`
	Organization string   `json:"organization,omitempty"`
	Country      string   `json:"country,omitempty"`
	Tags         []string `json:"tags"`
	Status       string   `json:"status"`
}

// RegistryEntry is the external shape of a registered MCP server.
type RegistryEntry struct {
	DID         string       `json:"did"`
	Endpoint    string       `json:"endpoint"`
	Manifest    string       `json:"manifest"`
	Credentials []Credential `json:"credentials"`
	Metadata    Metadata     `json:"metadata"`
}

// SearchFilters is the set of optional filter keys recognized by search.
// Empty fields contribute no clause.
type SearchFilters struct {
	Capability   string
	Tag          string
	Organization string
	Country      string
}

// IsEmpty reports whether no filter key is set.
func (f SearchFilters) IsEmpty() bool {
	return f.Capability == "" && f.Tag == "" && f.Organization == "" && f.Country == ""
}

// PaginatedServers is the result of a paginated list operation.
type PaginatedServers struct {
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int              `json:"total"`
	Items []*RegistryEntry `json:"items"`
}

// UpsertResult acknowledges a successful write.
type UpsertResult struct {
	Status string `json:"status"`
	DID    string `json:"did"`
}

// Issuer is a trust anchor entity that issues credentials.
type Issuer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Documentation string `json:"documentation,omitempty"`
}

// IssuerList wraps the trusted issuer listing.
type IssuerList struct {
	Issuers []Issuer `json:"issuers"`
}

// RevokedServer records an invalidated server.
type RevokedServer struct {
	DID       string `json:"did"`
	RevokedAt string `json:"revokedAt"`
	Reason    string `json:"reason,omitempty"`
}

// RevokedCredential records an invalidated credential.
type RevokedCredential struct {
	ID        string `json:"id"`
	RevokedAt string `json:"revokedAt"`
	Reason    string `json:"reason,omitempty"`
}

// RevocationStatus enumerates invalidated servers and credentials.
type RevocationStatus struct {
	RevokedServers     []RevokedServer     `json:"revokedServers"`
	RevokedCredentials []RevokedCredential `json:"revokedCredentials"`
}

// applyDefaults normalizes an entry in place so that the sequence fields are
// never nil and status is always present. Reads and writes both pass
// through it.
func (e *RegistryEntry) applyDefaults() {
	if e.Credentials == nil {
		e.Credentials = []Credential{}
	}
	if e.Metadata.Capabilities == nil {
		e.Metadata.Capabilities = []string{}
	}
	if e.Metadata.Tags == nil {
		e.Metadata.Tags = []string{}
	}
	if e.Metadata.Status == "" {
		e.Metadata.Status = StatusActive
	}
}

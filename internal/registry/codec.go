package registry

import (
	"encoding/json"
	"time"
)

// StoredRow is the flattened persistence shape of a registry entry, as
// scanned from the mcp_registry table. The JSON-bearing columns are kept as
// raw bytes so that malformed legacy data can be recovered at decode time
// instead of failing the scan.
type StoredRow struct {
	DID              string
	Endpoint         string
	Manifest         string
	Credentials      []byte
	MetaCapabilities []byte
	MetaOrganization *string
	MetaCountry      *string
	MetaTags         []byte
	MetaStatus       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DecodeRow converts a stored row into a registry entry. It never fails:
// absent or unparseable JSON-bearing columns degrade to empty sequences and
// a missing status defaults to "active".
func DecodeRow(row StoredRow) *RegistryEntry {
	entry := &RegistryEntry{
		DID:         row.DID,
		Endpoint:    row.Endpoint,
		Manifest:    row.Manifest,
		Credentials: decodeCredentialList(row.Credentials),
		Metadata: Metadata{
			Capabilities: decodeStringList(row.MetaCapabilities),
			Organization: stringOrEmpty(row.MetaOrganization),
			Country:      stringOrEmpty(row.MetaCountry),
			Tags:         decodeStringList(row.MetaTags),
			Status:       stringOrEmpty(row.MetaStatus),
		},
	}
	entry.applyDefaults()
	return entry
}

// EncodeWriteParams extracts the positional parameters for the upsert
// statement from an entry, applying the same defaults as decoding: empty
// sequences for absent lists, null for absent organization/country, and
// "active" for an absent status. Like DecodeRow it is total over any input.
func EncodeWriteParams(entry *RegistryEntry) []any {
	e := *entry
	e.applyDefaults()

	return []any{
		e.DID,
		e.Endpoint,
		e.Manifest,
		mustMarshal(e.Credentials),
		mustMarshal(e.Metadata.Capabilities),
		nullIfEmpty(e.Metadata.Organization),
		nullIfEmpty(e.Metadata.Country),
		mustMarshal(e.Metadata.Tags),
		e.Metadata.Status,
	}
}

// decodeStringList tolerantly parses a stored JSON column into a string
// slice. Legacy rows may hold double-encoded JSON (a JSON string containing
// serialized JSON); those are unwrapped one level before giving up.
func decodeStringList(raw []byte) []string {
	var out []string
	if tolerantUnmarshal(raw, &out) && out != nil {
		return out
	}
	return []string{}
}

func decodeCredentialList(raw []byte) []Credential {
	var out []Credential
	if tolerantUnmarshal(raw, &out) && out != nil {
		return out
	}
	return []Credential{}
}

// tolerantUnmarshal reports whether raw parsed into v, trying the raw bytes
// first and then, if the column held a JSON-encoded string, its contents.
func tolerantUnmarshal(raw []byte, v any) bool {
	if len(raw) == 0 {
		return false
	}
	if json.Unmarshal(raw, v) == nil {
		return true
	}
	var inner string
	if json.Unmarshal(raw, &inner) == nil {
		return json.Unmarshal([]byte(inner), v) == nil
	}
	return false
}

// mustMarshal serializes a value that cannot fail to marshal (slices of
// plain strings/structs).
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

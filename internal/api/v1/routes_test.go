package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpf-dev/trust-registry/internal/registry"
	"github.com/mcpf-dev/trust-registry/internal/service"
	"github.com/mcpf-dev/trust-registry/internal/service/inmemory"
	"github.com/mcpf-dev/trust-registry/internal/service/trust"
)

func setupRouter(t *testing.T) (http.Handler, service.RegistryService) {
	t.Helper()
	svc := inmemory.New()
	return Router(svc, trust.New()), svc
}

func seedEntry(t *testing.T, svc service.RegistryService, did string) *registry.RegistryEntry {
	t.Helper()
	entry := &registry.RegistryEntry{
		DID:      did,
		Endpoint: "https://" + did + ".example.com/mcp",
		Manifest: "https://" + did + ".example.com/mcp/manifest.json",
		Metadata: registry.Metadata{
			Capabilities: []string{"getForecast"},
			Organization: "National Weather Service",
			Country:      "US",
			Tags:         []string{"weather"},
		},
	}
	_, err := svc.UpsertServer(context.Background(), entry)
	require.NoError(t, err)
	return entry
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetRegistryInfo(t *testing.T) {
	t.Parallel()

	handler, _ := setupRouter(t)
	rec := doRequest(t, handler, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var info registryInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "MCPF Trust Registry", info.Name)
	assert.Equal(t, "1.0", info.MCPFVersion)
	assert.Equal(t, "/mcp/servers", info.Endpoints["servers"])
}

func TestHealth(t *testing.T) {
	t.Parallel()

	handler, _ := setupRouter(t)
	rec := doRequest(t, handler, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestListServers(t *testing.T) {
	t.Parallel()

	handler, svc := setupRouter(t)
	seedEntry(t, svc, "did:web:a")
	seedEntry(t, svc, "did:web:b")

	rec := doRequest(t, handler, http.MethodGet, "/servers?page=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page registry.PaginatedServers
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.Limit)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)
}

func TestListServersBadParams(t *testing.T) {
	t.Parallel()

	handler, _ := setupRouter(t)

	rec := doRequest(t, handler, http.MethodGet, "/servers?page=two", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/servers?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetServerByDID(t *testing.T) {
	t.Parallel()

	handler, svc := setupRouter(t)
	seeded := seedEntry(t, svc, "did:web:weather.example.com:mcp:api")

	target := "/servers/" + url.PathEscape(seeded.DID)
	rec := doRequest(t, handler, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entry registry.RegistryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, seeded.DID, entry.DID)
	assert.Equal(t, seeded.Endpoint, entry.Endpoint)
}

func TestGetServerNotFound(t *testing.T) {
	t.Parallel()

	handler, _ := setupRouter(t)
	rec := doRequest(t, handler, http.MethodGet, "/servers/did:unknown", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body notFoundResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Not found", body.Error)
	assert.Equal(t, "did:unknown", body.DID)
}

func TestRegisterServer(t *testing.T) {
	t.Parallel()

	handler, svc := setupRouter(t)

	payload := []byte(`{
		"did": "did:web:new.example.com",
		"endpoint": "https://new.example.com/mcp",
		"manifest": "https://new.example.com/mcp/manifest.json",
		"metadata": {"capabilities": ["query"], "tags": ["new"]}
	}`)

	rec := doRequest(t, handler, http.MethodPost, "/servers", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var result registry.UpsertResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "did:web:new.example.com", result.DID)

	stored, err := svc.GetServerByDID(context.Background(), "did:web:new.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"query"}, stored.Metadata.Capabilities)
	assert.Equal(t, registry.StatusActive, stored.Metadata.Status)
}

func TestRegisterServerValidation(t *testing.T) {
	t.Parallel()

	handler, _ := setupRouter(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"missing did", `{"endpoint": "https://x.example.com", "manifest": "https://x.example.com/m"}`},
		{"missing endpoint", `{"did": "did:web:x", "manifest": "https://x.example.com/m"}`},
		{"missing manifest", `{"did": "did:web:x", "endpoint": "https://x.example.com"}`},
		{"empty body", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := doRequest(t, handler, http.MethodPost, "/servers", []byte(tt.payload))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterServerMalformedBody(t *testing.T) {
	t.Parallel()

	handler, _ := setupRouter(t)
	rec := doRequest(t, handler, http.MethodPost, "/servers", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchServers(t *testing.T) {
	t.Parallel()

	handler, svc := setupRouter(t)
	seedEntry(t, svc, "did:web:a")

	rec := doRequest(t, handler, http.MethodGet, "/search?capability=getForecast", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "did:web:a", result.Items[0].DID)

	rec = doRequest(t, handler, http.MethodGet, "/search?capability=nothing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Empty(t, result.Items)
}

func TestListIssuers(t *testing.T) {
	t.Parallel()

	handler, _ := setupRouter(t)
	rec := doRequest(t, handler, http.MethodGet, "/issuers", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var issuers registry.IssuerList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issuers))
	require.Len(t, issuers.Issuers, 1)
	assert.Equal(t, trust.DefaultIssuerDID, issuers.Issuers[0].ID)
}

func TestGetRevocations(t *testing.T) {
	t.Parallel()

	handler, _ := setupRouter(t)
	rec := doRequest(t, handler, http.MethodGet, "/revocations", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	// The placeholder lists serialize as empty arrays, not null.
	assert.JSONEq(t, `{"revokedServers":[],"revokedCredentials":[]}`, rec.Body.String())
}

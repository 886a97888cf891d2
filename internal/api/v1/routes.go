// Package v1 provides the HTTP handlers for the trust registry API.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mcpf-dev/trust-registry/internal/api/common"
	"github.com/mcpf-dev/trust-registry/internal/registry"
	"github.com/mcpf-dev/trust-registry/internal/service"
	"github.com/mcpf-dev/trust-registry/internal/versions"
)

// mcpfVersion is the protocol version advertised by the info and health
// endpoints.
const mcpfVersion = "1.0"

// Routes handles HTTP requests for the registry endpoints.
type Routes struct {
	service service.RegistryService
	trust   service.TrustService
}

// NewRoutes creates a new Routes instance with the given services.
func NewRoutes(svc service.RegistryService, trust service.TrustService) *Routes {
	return &Routes{
		service: svc,
		trust:   trust,
	}
}

// Router creates and configures the HTTP router for the registry endpoints.
func Router(svc service.RegistryService, trust service.TrustService) http.Handler {
	routes := NewRoutes(svc, trust)

	r := chi.NewRouter()

	r.Get("/", routes.getRegistryInfo)
	r.Get("/health", healthHandler)

	r.Get("/servers", routes.listServers)
	r.Post("/servers", routes.registerServer)
	r.Get("/servers/{did}", routes.getServerByDID)

	r.Get("/search", routes.searchServers)

	r.Get("/issuers", routes.listIssuers)
	r.Get("/revocations", routes.getRevocations)

	return r
}

// registryInfoResponse is the registry information document.
type registryInfoResponse struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	MCPFVersion   string            `json:"mcpfVersion"`
	Documentation string            `json:"documentation"`
	Endpoints     map[string]string `json:"endpoints"`
}

// getRegistryInfo handles GET /mcp
func (*Routes) getRegistryInfo(w http.ResponseWriter, _ *http.Request) {
	info := registryInfoResponse{
		Name:          "MCPF Trust Registry",
		Version:       versions.GetVersionInfo().Version,
		MCPFVersion:   mcpfVersion,
		Documentation: "https://mcpf.dev/docs/registry",
		Endpoints: map[string]string{
			"servers":     "/mcp/servers",
			"search":      "/mcp/search",
			"issuers":     "/mcp/issuers",
			"revocations": "/mcp/revocations",
		},
	}

	common.WriteJSONResponse(w, info, http.StatusOK)
}

// listServers handles GET /mcp/servers with page/limit query parameters.
// Out-of-range values are clamped by the service, matching a paginated
// read that should never fail on sloppy input.
func (routes *Routes) listServers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := 1
	if pageStr := query.Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil {
			common.WriteErrorResponse(w, "Invalid page parameter: must be an integer", http.StatusBadRequest)
			return
		}
		page = parsed
	}

	limit := registry.DefaultPageSize
	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			common.WriteErrorResponse(w, "Invalid limit parameter: must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	result, err := routes.service.ListServers(r.Context(), page, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list servers", "error", err)
		common.WriteErrorResponse(w, "Failed to list servers", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, result, http.StatusOK)
}

// notFoundResponse is the body of a 404 for an unknown DID.
type notFoundResponse struct {
	Error string `json:"error"`
	DID   string `json:"did"`
}

// getServerByDID handles GET /mcp/servers/{did}. The DID may arrive
// percent-encoded.
func (routes *Routes) getServerByDID(w http.ResponseWriter, r *http.Request) {
	did := chi.URLParam(r, "did")
	if decoded, err := url.PathUnescape(did); err == nil {
		did = decoded
	}

	entry, err := routes.service.GetServerByDID(r.Context(), did)
	if err != nil {
		if errors.Is(err, service.ErrServerNotFound) {
			common.WriteJSONResponse(w, notFoundResponse{Error: "Not found", DID: did}, http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to get server", "did", did, "error", err)
		common.WriteErrorResponse(w, "Failed to get server", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, entry, http.StatusOK)
}

// registerServer handles POST /mcp/servers. The store layer does not
// validate entries, so required fields are checked here before the write.
// TODO(auth): protect this endpoint once the credential verification
// subsystem lands.
func (routes *Routes) registerServer(w http.ResponseWriter, r *http.Request) {
	entry, err := decodeEntry(r)
	if err != nil {
		common.WriteErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if entry.DID == "" || entry.Endpoint == "" || entry.Manifest == "" {
		common.WriteErrorResponse(w, "did, endpoint, manifest are required", http.StatusBadRequest)
		return
	}

	result, err := routes.service.UpsertServer(r.Context(), entry)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to upsert server", "did", entry.DID, "error", err)
		common.WriteErrorResponse(w, "Failed to register server", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, result, http.StatusOK)
}

// maxBodySize bounds the accepted request body for registrations.
const maxBodySize = 1 << 20 // 1 MiB

// decodeEntry parses a registry entry from the request body.
func decodeEntry(r *http.Request) (*registry.RegistryEntry, error) {
	var entry registry.RegistryEntry
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// searchResponse wraps search results.
type searchResponse struct {
	Items []*registry.RegistryEntry `json:"items"`
}

// searchServers handles GET /mcp/search with the four optional filter keys.
func (routes *Routes) searchServers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := registry.SearchFilters{
		Capability:   query.Get("capability"),
		Tag:          query.Get("tag"),
		Organization: query.Get("organization"),
		Country:      query.Get("country"),
	}

	items, err := routes.service.SearchServers(r.Context(), filters)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to search servers", "error", err)
		common.WriteErrorResponse(w, "Failed to search servers", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, searchResponse{Items: items}, http.StatusOK)
}

// listIssuers handles GET /mcp/issuers
func (routes *Routes) listIssuers(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, routes.trust.ListIssuers(), http.StatusOK)
}

// getRevocations handles GET /mcp/revocations
func (routes *Routes) getRevocations(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, routes.trust.GetRevocations(), http.StatusOK)
}

// healthResponse is the body of the health endpoint.
type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	MCPFVersion string `json:"mcpfVersion"`
	Time        string `json:"time"`
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, healthResponse{
		Status:      "ok",
		Version:     versions.GetVersionInfo().Version,
		MCPFVersion: mcpfVersion,
		Time:        time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// HealthRouter creates a router for the root-level health endpoints.
func HealthRouter(svc service.RegistryService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// readinessHandler handles readiness check requests
func readinessHandler(svc service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteErrorResponse(w, "RegistryService not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	common.WriteJSONResponse(w, map[string]string{
		"version":    info.Version,
		"commit":     info.Commit,
		"build_date": info.BuildDate,
		"go_version": info.GoVersion,
		"platform":   info.Platform,
	}, http.StatusOK)
}

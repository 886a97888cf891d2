package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/mcpf-dev/trust-registry/internal/service/inmemory"
	"github.com/mcpf-dev/trust-registry/internal/service/trust"
)

func TestNewServerMounts(t *testing.T) {
	t.Parallel()

	srv := NewServer(inmemory.New(), trust.New())

	tests := []struct {
		target string
		want   int
	}{
		{"/health", http.StatusOK},
		{"/readiness", http.StatusOK},
		{"/version", http.StatusOK},
		{"/mcp", http.StatusOK},
		{"/mcp/servers", http.StatusOK},
		{"/mcp/search", http.StatusOK},
		{"/mcp/issuers", http.StatusOK},
		{"/mcp/revocations", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
		assert.Equal(t, tt.want, rec.Code, "GET %s", tt.target)
	}
}

func TestNewServerWithMiddlewares(t *testing.T) {
	t.Parallel()

	srv := NewServer(
		inmemory.New(),
		trust.New(),
		WithMiddlewares(middleware.RequestID, LoggingMiddleware),
	)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

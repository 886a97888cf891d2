// Package inmemory provides a map-backed implementation of the
// RegistryService interface. It is used by the HTTP handler tests and is
// handy for demos; it is not persistent.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcpf-dev/trust-registry/internal/registry"
	"github.com/mcpf-dev/trust-registry/internal/service"
)

// storedEntry pairs an entry with its write timestamps so listing can mirror
// the database's recency ordering.
type storedEntry struct {
	entry     *registry.RegistryEntry
	createdAt time.Time
	updatedAt time.Time
}

// regSvc implements the RegistryService interface
type regSvc struct {
	mu      sync.RWMutex
	servers map[string]storedEntry
	now     func() time.Time
}

var _ service.RegistryService = (*regSvc)(nil)

// Option is a functional option for configuring the in-memory service
type Option func(*regSvc)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *regSvc) {
		s.now = now
	}
}

// New creates an empty in-memory registry service.
func New(opts ...Option) service.RegistryService {
	s := &regSvc{
		servers: make(map[string]storedEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckReadiness always succeeds; there is no backend to wait for.
func (*regSvc) CheckReadiness(_ context.Context) error {
	return nil
}

// ListServers returns one page of entries in descending created_at order
// plus the total entry count.
func (s *regSvc) ListServers(
	_ context.Context,
	page, limit int,
) (*registry.PaginatedServers, error) {
	page, limit, offset := registry.ListParams(page, limit)

	s.mu.RLock()
	ordered := s.orderedLocked()
	total := len(s.servers)
	s.mu.RUnlock()

	items := []*registry.RegistryEntry{}
	for i := offset; i < len(ordered) && len(items) < limit; i++ {
		items = append(items, cloneEntry(ordered[i].entry))
	}

	return &registry.PaginatedServers{
		Page:  page,
		Limit: limit,
		Total: total,
		Items: items,
	}, nil
}

// GetServerByDID returns the entry for the given DID, or ErrServerNotFound.
func (s *regSvc) GetServerByDID(
	_ context.Context,
	did string,
) (*registry.RegistryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.servers[did]
	if !ok {
		return nil, service.ErrServerNotFound
	}
	return cloneEntry(stored.entry), nil
}

// SearchServers returns entries matching the conjunction of the set filter
// keys, capped at registry.MaxPageSize.
func (s *regSvc) SearchServers(
	_ context.Context,
	filters registry.SearchFilters,
) ([]*registry.RegistryEntry, error) {
	s.mu.RLock()
	ordered := s.orderedLocked()
	s.mu.RUnlock()

	results := []*registry.RegistryEntry{}
	for _, stored := range ordered {
		if len(results) >= registry.MaxPageSize {
			break
		}
		if matches(stored.entry, filters) {
			results = append(results, cloneEntry(stored.entry))
		}
	}
	return results, nil
}

// UpsertServer creates or fully replaces the entry keyed by its DID.
func (s *regSvc) UpsertServer(
	_ context.Context,
	entry *registry.RegistryEntry,
) (*registry.UpsertResult, error) {
	normalized := normalize(entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := storedEntry{entry: normalized, createdAt: now, updatedAt: now}
	if previous, ok := s.servers[entry.DID]; ok {
		stored.createdAt = previous.createdAt
	}
	s.servers[entry.DID] = stored

	return &registry.UpsertResult{Status: "ok", DID: entry.DID}, nil
}

// orderedLocked returns entries newest-first. Caller must hold s.mu.
func (s *regSvc) orderedLocked() []storedEntry {
	ordered := make([]storedEntry, 0, len(s.servers))
	for _, stored := range s.servers {
		ordered = append(ordered, stored)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].createdAt.After(ordered[j].createdAt)
	})
	return ordered
}

func matches(entry *registry.RegistryEntry, f registry.SearchFilters) bool {
	if f.Capability != "" && !contains(entry.Metadata.Capabilities, f.Capability) {
		return false
	}
	if f.Tag != "" && !contains(entry.Metadata.Tags, f.Tag) {
		return false
	}
	if f.Organization != "" && entry.Metadata.Organization != f.Organization {
		return false
	}
	if f.Country != "" && entry.Metadata.Country != f.Country {
		return false
	}
	return true
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// normalize runs an entry through the codec so the in-memory store applies
// the same defaulting rules as the database path.
func normalize(entry *registry.RegistryEntry) *registry.RegistryEntry {
	params := registry.EncodeWriteParams(entry)
	return registry.DecodeRow(registry.StoredRow{
		DID:              params[0].(string),
		Endpoint:         params[1].(string),
		Manifest:         params[2].(string),
		Credentials:      params[3].([]byte),
		MetaCapabilities: params[4].([]byte),
		MetaOrganization: params[5].(*string),
		MetaCountry:      params[6].(*string),
		MetaTags:         params[7].([]byte),
		MetaStatus:       strPtr(params[8].(string)),
	})
}

func cloneEntry(entry *registry.RegistryEntry) *registry.RegistryEntry {
	clone := *entry
	clone.Credentials = append([]registry.Credential{}, entry.Credentials...)
	clone.Metadata.Capabilities = append([]string{}, entry.Metadata.Capabilities...)
	clone.Metadata.Tags = append([]string{}, entry.Metadata.Tags...)
	return &clone
}

func strPtr(s string) *string {
	return &s
}

// Package trust provides the static trust-anchor information: the trusted
// issuer listing and the (currently empty) revocation lists.
package trust

import (
	"github.com/mcpf-dev/trust-registry/internal/registry"
	"github.com/mcpf-dev/trust-registry/internal/service"
)

const (
	// DefaultIssuerDID is used when no issuer is configured.
	DefaultIssuerDID = "did:web:veritrust.vc"

	defaultIssuerName = "Veritrust"
	defaultIssuerDocs = "https://veritrust.vc/issuer/"
)

// Provider serves fixed issuer and revocation data. It holds no mutable
// state and performs no I/O.
type Provider struct {
	issuer registry.Issuer
}

var _ service.TrustService = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithIssuer overrides the default issuer record. Empty fields keep their
// defaults.
func WithIssuer(id, name, documentation string) Option {
	return func(p *Provider) {
		if id != "" {
			p.issuer.ID = id
		}
		if name != "" {
			p.issuer.Name = name
		}
		if documentation != "" {
			p.issuer.Documentation = documentation
		}
	}
}

// New creates a trust provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		issuer: registry.Issuer{
			ID:            DefaultIssuerDID,
			Name:          defaultIssuerName,
			Documentation: defaultIssuerDocs,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ListIssuers returns the single configured issuer.
func (p *Provider) ListIssuers() registry.IssuerList {
	return registry.IssuerList{
		Issuers: []registry.Issuer{p.issuer},
	}
}

// GetRevocations returns empty revocation lists. Revocation data is a
// placeholder until the verification subsystem lands.
func (*Provider) GetRevocations() registry.RevocationStatus {
	return registry.RevocationStatus{
		RevokedServers:     []registry.RevokedServer{},
		RevokedCredentials: []registry.RevokedCredential{},
	}
}

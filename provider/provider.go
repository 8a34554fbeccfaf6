// Package provider models an OAI-PMH source: a live endpoint reached
// over HTTP, or a StaticProvider backed by a pre-fetched local archive.
// Both satisfy the same Harvestable surface so a Scenario (package
// scenario) can drive either without knowing which it has.
package provider

import (
	"context"
	"time"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/oaixml"
)

// Provider is a configured OAI-PMH source: {name, base URL, optional
// allowed-prefix filter, per-endpoint timeout}. Its identity is its
// normalized base URL — two Providers with differently-cased or
// trailing-slash-differing URLs are the same endpoint.
type Provider struct {
	Name            string
	BaseURL         string
	AllowedPrefixes []string // empty means "all prefixes offered by the endpoint"
	Timeout         time.Duration

	client *oaixml.Client
}

// Identity returns the normalized base URL this provider is keyed by.
func (p *Provider) Identity() string {
	return oaixml.NormalizeBaseURL(p.BaseURL)
}

// Client lazily constructs the provider's OAI HTTP client.
func (p *Provider) Client(logger core.Logger) (*oaixml.Client, error) {
	if p.client != nil {
		return p.client, nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c, err := oaixml.NewClient(p.BaseURL, timeout, logger)
	if err != nil {
		return nil, err
	}
	p.client = c
	return c, nil
}

// AllowsPrefix reports whether prefix is harvestable from this
// provider, honoring an explicit allow-list when one is configured.
func (p *Provider) AllowsPrefix(prefix string) bool {
	if len(p.AllowedPrefixes) == 0 {
		return true
	}
	for _, allowed := range p.AllowedPrefixes {
		if allowed == prefix {
			return true
		}
	}
	return false
}

// IsStatic reports whether this provider is backed by a local archive
// rather than a live endpoint. It is always false for Provider;
// StaticProvider's IsStatic returns true.
func (p *Provider) IsStatic() bool { return false }

// Harvestable is implemented by both Provider (live) and StaticProvider
// (archive-backed), so the controller, worker and scenario can hold
// either kind and ask IsStatic which code path applies.
type Harvestable interface {
	Identity() string
	AllowsPrefix(prefix string) bool
	IsStatic() bool
}

var (
	_ Harvestable = (*Provider)(nil)
)

// ListMetadataFormats fetches the provider's supported prefixes.
func (p *Provider) ListMetadataFormats(ctx context.Context, logger core.Logger) ([]string, error) {
	client, err := p.Client(logger)
	if err != nil {
		return nil, err
	}
	resp, err := client.ListMetadataFormats(ctx)
	if err != nil {
		return nil, err
	}
	prefixes := make([]string, 0, len(resp.ListMetadataFormats.MetadataFormat))
	for _, f := range resp.ListMetadataFormats.MetadataFormat {
		prefixes = append(prefixes, f.MetadataPrefix)
	}
	return prefixes, nil
}

package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProviderIdentityNormalizesBaseURL(t *testing.T) {
	p := &Provider{BaseURL: "HTTP://Example.ORG/oai/"}
	require.Equal(t, "http://example.org/oai", p.Identity())
}

func TestProviderAllowsPrefixWithNoAllowListAllowsEverything(t *testing.T) {
	p := &Provider{}
	require.True(t, p.AllowsPrefix("oai_dc"))
	require.True(t, p.AllowsPrefix("mods"))
}

func TestProviderAllowsPrefixHonorsAllowList(t *testing.T) {
	p := &Provider{AllowedPrefixes: []string{"oai_dc"}}
	require.True(t, p.AllowsPrefix("oai_dc"))
	require.False(t, p.AllowsPrefix("mods"))
}

func TestProviderIsStaticIsFalse(t *testing.T) {
	p := &Provider{}
	require.False(t, p.IsStatic())
}

func TestProviderClientIsLazyAndCached(t *testing.T) {
	p := &Provider{BaseURL: "http://example.org/oai", Timeout: time.Second}
	require.Nil(t, p.client)

	c1, err := p.Client(nil)
	require.NoError(t, err)
	require.NotNil(t, c1)

	c2, err := p.Client(nil)
	require.NoError(t, err)
	require.Same(t, c1, c2, "a second call must reuse the cached client")
}

func TestProviderClientDefaultsTimeoutWhenUnset(t *testing.T) {
	p := &Provider{BaseURL: "http://example.org/oai"}
	c, err := p.Client(nil)
	require.NoError(t, err)
	require.NotNil(t, c)
}

package oaixml

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/resilience"
)

// Verb identifies an OAI-PMH protocol verb.
type Verb string

const (
	VerbIdentify            Verb = "Identify"
	VerbListMetadataFormats Verb = "ListMetadataFormats"
	VerbListIdentifiers     Verb = "ListIdentifiers"
	VerbListRecords         Verb = "ListRecords"
	VerbGetRecord           Verb = "GetRecord"
)

// Request is one OAI-PMH query, either a fresh request or a resumption
// of a previous one (Verb + ResumptionToken only, per the OAI-PMH
// protocol).
type Request struct {
	Verb            Verb
	Set             string
	MetadataPrefix  string
	Identifier      string
	From            string
	Until           string
	ResumptionToken string
}

func (r Request) queryString() string {
	v := url.Values{}
	v.Set("verb", string(r.Verb))
	if r.ResumptionToken != "" {
		// Per the OAI-PMH spec, a resumption request carries only verb + token.
		v.Set("resumptionToken", r.ResumptionToken)
		return v.Encode()
	}
	if r.Set != "" {
		v.Set("set", r.Set)
	}
	if r.MetadataPrefix != "" {
		v.Set("metadataPrefix", r.MetadataPrefix)
	}
	if r.Identifier != "" {
		v.Set("identifier", r.Identifier)
	}
	if r.From != "" {
		v.Set("from", r.From)
	}
	if r.Until != "" {
		v.Set("until", r.Until)
	}
	return v.Encode()
}

// Client issues OAI-PMH requests against one provider's base URL,
// instrumented with OpenTelemetry (via otelhttp) and guarded by a
// circuit breaker + retry policy (resilience package) so a single dead
// endpoint can't stall the worker pool.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
	logger  core.Logger
}

// NewClient builds a Client for baseURL with a per-request timeout and
// a dedicated circuit breaker (one per provider, so one endpoint's
// outage does not trip another's breaker).
func NewClient(baseURL string, timeout time.Duration, logger core.Logger) (*Client, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("oaixml/client")
	}

	cbConfig := resilience.DefaultConfig()
	cbConfig.Name = "oai:" + NormalizeBaseURL(baseURL)
	cbConfig.Logger = logger
	breaker, err := resilience.NewCircuitBreaker(cbConfig)
	if err != nil {
		return nil, fmt.Errorf("oaixml.NewClient: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		retry:   resilience.DefaultRetryConfig(),
		logger:  logger,
	}, nil
}

// NormalizeBaseURL canonicalizes a provider's identity: its base URL,
// normalized with a case-insensitive host. Scheme and host are
// lowercased, trailing slashes trimmed.
func NormalizeBaseURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// Do issues req against the endpoint, retrying every attempt that
// returns an error (not only transient ones) through the circuit
// breaker, and parses the XML envelope. A non-nil
// Response with HasError()==true means the repository answered with a
// protocol-level error, not a transport failure.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var resp *Response

	err := resilience.RetryWithCircuitBreaker(ctx, c.retry, c.breaker, func() error {
		r, doErr := c.doOnce(ctx, req)
		if doErr != nil {
			return doErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, core.NewHarvestError("oaixml.Do", "transient", err).WithID(string(req.Verb))
	}
	if resp.HasError() {
		return resp, core.NewHarvestError("oaixml.Do", "protocol",
			fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)).WithID(string(req.Verb))
	}
	return resp, nil
}

func (c *Client) doOnce(ctx context.Context, req Request) (*Response, error) {
	target := c.baseURL + "?" + req.queryString()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProtocolViolation, err)
	}

	c.logger.Debug("oai request", map[string]interface{}{"verb": req.Verb, "url": target})

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrRequestTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrTransientNetwork, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", core.ErrTransientNetwork, httpResp.StatusCode)
	}
	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", core.ErrProtocolViolation, httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTransientNetwork, err)
	}

	var parsed Response
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProtocolViolation, err)
	}
	return &parsed, nil
}

// Identify issues the Identify verb.
func (c *Client) Identify(ctx context.Context) (*Response, error) {
	return c.Do(ctx, Request{Verb: VerbIdentify})
}

// ListMetadataFormats issues the ListMetadataFormats verb.
func (c *Client) ListMetadataFormats(ctx context.Context) (*Response, error) {
	return c.Do(ctx, Request{Verb: VerbListMetadataFormats})
}

// ListIdentifiers issues the ListIdentifiers verb with an optional
// continuation token.
func (c *Client) ListIdentifiers(ctx context.Context, prefix, from, resumptionToken string) (*Response, error) {
	return c.Do(ctx, Request{Verb: VerbListIdentifiers, MetadataPrefix: prefix, From: from, ResumptionToken: resumptionToken})
}

// ListRecords issues the ListRecords verb with an optional continuation token.
func (c *Client) ListRecords(ctx context.Context, prefix, from, resumptionToken string) (*Response, error) {
	return c.Do(ctx, Request{Verb: VerbListRecords, MetadataPrefix: prefix, From: from, ResumptionToken: resumptionToken})
}

// GetRecord issues the GetRecord verb for one identifier.
func (c *Client) GetRecord(ctx context.Context, identifier, prefix string) (*Response, error) {
	return c.Do(ctx, Request{Verb: VerbGetRecord, Identifier: identifier, MetadataPrefix: prefix})
}

// internal/wttr/client.go
// Package wttr fetches raw weather JSON from a wttr.in style provider and
// normalizes it into the stable shape shared by every adapter.
package wttr

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mvenner/skycast/internal/logging"
)

const (
	// DefaultBaseURL is the public provider endpoint.
	DefaultBaseURL = "https://wttr.in"
	// DefaultUserAgent mirrors curl; the provider content-negotiates against
	// automated clients otherwise.
	DefaultUserAgent = "curl/7.68.0"
	// DefaultTimeout bounds the single network attempt. There is no retry,
	// so this is also the worst-case latency an adapter observes.
	DefaultTimeout = 30 * time.Second
)

// ClientOptions configures a Client. The zero value yields the public
// provider with certificate verification enabled.
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	// Insecure disables certificate-chain verification for the outbound
	// call. The provider's chain has a history of breakage; this stays
	// opt-in and is logged when enabled.
	Insecure bool
	Timeout  time.Duration
}

// Client issues provider requests. One outbound call per Fetch, no retry,
// no caching between calls; safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient builds a Client from options, applying defaults for anything
// unset.
func NewClient(opts ClientOptions) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	agent := strings.TrimSpace(opts.UserAgent)
	if agent == "" {
		agent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		logging.LogEvent("wttr: certificate verification disabled for %s", base)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		baseURL:    base,
		userAgent:  agent,
	}
}

// RequestURL builds the provider URL for a query. It is a pure function of
// its input: the same query always produces the same URL.
func (c *Client) RequestURL(query string) string {
	return c.baseURL + "/" + url.PathEscape(query) + "?format=j1"
}

// Fetch issues the single GET for a location query and decodes the body.
// Transport failures and non-200 statuses surface as *NetworkError, a
// non-JSON body as *ParseError.
func (c *Client) Fetch(ctx context.Context, query string) (*RawWeatherReport, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Err: fmt.Errorf("provider returned status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	var report RawWeatherReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &report, nil
}

// Lookup runs the full fetch-then-normalize pipeline for one query. Every
// failure, regardless of kind, carries the shared diagnostic form so all
// adapters present the same message.
func (c *Client) Lookup(ctx context.Context, query string, detail Detail) (*Weather, error) {
	report, err := c.Fetch(ctx, query)
	if err != nil {
		return nil, wrapFailure(query, err)
	}
	weather, err := Normalize(report, detail)
	if err != nil {
		return nil, wrapFailure(query, err)
	}
	return weather, nil
}

// Package fetch provides protocol-specific clients for retrieving raw fee
// quotes from the public bridge APIs. Decoding a response into a FeeQuote is
// the normalize package's job; clients only know how to reach their API and
// which routes it can serve.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/yourorg/bridge-fee-tracker/internal/config"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

// ErrRateLimited indicates the upstream API answered with HTTP 429 even after
// retries. Callers should back off instead of hammering the endpoint.
var ErrRateLimited = errors.New("rate limited by upstream API")

// Some bridge API gateways reject requests without a browser-style user agent.
const browserUserAgent = "Mozilla/5.0 (compatible; bridge-fee-tracker/1.0)"

// Source defines the interface that all bridge quote clients must implement.
type Source interface {
	// Protocol returns the registry tag of the bridge, e.g. "across".
	Protocol() string
	// Quote retrieves the raw quote response for the given route.
	Quote(ctx context.Context, req model.QuoteRequest) ([]byte, error)
}

// NewSources creates the default set of quote sources from the configuration.
func NewSources(cfg *config.Config) []Source {
	return []Source{
		NewAcrossClient(cfg),
		NewHopClient(cfg),
	}
}

// RouteError reports a route a protocol cannot serve, such as a chain the
// bridge is not deployed on or an amount outside its deposit limits. It is a
// per-route condition, not an upstream failure, so callers should not retry.
type RouteError struct {
	Protocol string
	Reason   string
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("%s cannot serve this route: %s", e.Protocol, e.Reason)
}

// newRetryClient creates a new HTTP client with retry capabilities
func newRetryClient(timeout time.Duration) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 1 * time.Second
	c.RetryWaitMax = 10 * time.Second
	c.HTTPClient.Timeout = timeout
	c.Logger = nil
	return c.StandardClient()
}

// get performs a GET against a bridge API and returns the raw response body.
// 429 responses map to ErrRateLimited so callers can tell throttling apart
// from route failures.
func get(ctx context.Context, client *http.Client, rawURL, protocol string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", protocol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s API: %w", protocol, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s API error: status %d, body: %s", protocol, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", protocol, err)
	}
	return body, nil
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrUnavailable marks a provider that is rate-limited out or has its circuit
// breaker open. Callers treat it like any other upstream failure: log, skip.
var ErrUnavailable = errors.New("provider unavailable")

// apiClient is the shared plumbing under every live provider client: a
// rate-limited, circuit-breaker-guarded JSON HTTP caller with retry.
type apiClient struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
	maxRetries int
	retryDelay time.Duration
}

// ClientOptions configures a live provider client.
type ClientOptions struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

func newAPIClient(name string, opts ClientOptions) *apiClient {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	return &apiClient{
		name:       name,
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 10),
		breaker:    NewCircuitBreaker(name, 2, 5*time.Minute),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

// getJSON issues a GET and decodes the response body into out. A 404 returns
// (false, nil) so sources that legitimately have no data for an address can
// report that without an error.
func (c *apiClient) getJSON(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// postJSON issues a POST with a JSON body and decodes the response into out.
func (c *apiClient) postJSON(ctx context.Context, path string, body any, out any) (bool, error) {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) (bool, error) {
	if !c.breaker.CanProceed() {
		return false, fmt.Errorf("%s: %w: circuit breaker open", c.name, ErrUnavailable)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("%s: rate limiter: %w", c.name, err)
	}

	var lastErr error
	delay := c.retryDelay
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		found, err := c.attempt(ctx, method, path, query, body, out)
		if err == nil {
			c.breaker.RecordSuccess()
			return found, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries {
			log.Warnf("%s: request failed (attempt %d/%d): %v, retrying in %v",
				c.name, attempt, c.maxRetries, err, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}

	c.breaker.RecordFailure()
	return false, fmt.Errorf("%s: request failed after %d attempts: %w", c.name, c.maxRetries, lastErr)
}

func (c *apiClient) attempt(ctx context.Context, method, path string, query url.Values, body any, out any) (bool, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}

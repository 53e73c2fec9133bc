// Package recall holds the knowledge-item result model and the fetch
// implementations the orchestrator is wired with: an HTTP client for a
// remote recall service. The orchestrator itself never sees a transport;
// it only calls the injected fetch function with a cancellation context.
package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client defaults.
const (
	DefaultEndpoint = "http://localhost:9321"
	DefaultLimit    = 10
	DefaultTimeout  = 10 * time.Second

	clientPoolSize = 4
)

// ClientConfig configures the HTTP recall client.
type ClientConfig struct {
	// Endpoint is the base URL of the recall service.
	Endpoint string
	// Limit is the maximum number of results per search.
	Limit int
	// Timeout bounds a single search request. The orchestrator's
	// cancellation context is honored independently of this.
	Timeout time.Duration
}

// Client talks to a recall service over HTTP. Its Fetch method satisfies
// the orchestrator's fetch contract: the context passed in is the
// cancellation token and is propagated down to the socket, so a superseded
// request tears down its connection promptly.
type Client struct {
	client   *http.Client
	endpoint string
	limit    int
	timeout  time.Duration
}

// ServiceError is a non-2xx response from the recall service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("recall service returned %d: %s", e.StatusCode, e.Message)
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results Results `json:"results"`
}

// NewClient creates a recall client. Zero config fields take defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	// No client-level timeout: it would override per-request contexts and
	// break cooperative cancellation. The context owns all deadlines.
	transport := &http.Transport{
		MaxIdleConns:        clientPoolSize,
		MaxIdleConnsPerHost: clientPoolSize,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Client{
		client:   &http.Client{Transport: transport},
		endpoint: cfg.Endpoint,
		limit:    cfg.Limit,
		timeout:  cfg.Timeout,
	}
}

// Fetch executes one search. It satisfies orchestrator.FetchFunc[Results].
func (c *Client) Fetch(ctx context.Context, query string) (Results, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(searchRequest{Query: query, Limit: c.limit})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	url := c.endpoint + "/api/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Unwrap url.Error so context.Canceled survives errors.Is checks
		// at the orchestrator boundary.
		return nil, fmt.Errorf("recall search failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return decoded.Results, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	if t, ok := c.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

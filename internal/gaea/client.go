// Package gaea implements the HTTP client for the remote keepalive service.
package gaea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the production endpoint of the remote service
	DefaultBaseURL = "https://api.aigaea.net"

	// DefaultTimeout is the hard timeout applied to every remote call
	DefaultTimeout = 30 * time.Second

	// DefaultVersion is the client version string sent with each ping
	DefaultVersion = "3.0.20"

	// pingPath is the keepalive endpoint
	pingPath = "/api/network/ping"

	// infoPath is the account info endpoint
	infoPath = "/api/earn/info"

	// maxResponseSize caps how much of a response body is read (1MB)
	maxResponseSize = 1 * 1024 * 1024
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client is the interface for remote keepalive operations. A ping or info
// call is a single network round trip; retry and backoff are the caller's
// concern.
type Client interface {
	// Ping performs one authenticated keepalive call for the account.
	Ping(ctx context.Context, creds Credentials) error

	// Info performs one authenticated info fetch for the account and
	// returns the opaque payload from the response envelope.
	Info(ctx context.Context, creds Credentials) (json.RawMessage, error)
}

// HTTPClient is the default Client implementation.
type HTTPClient struct {
	baseURL string
	version string
	timeout time.Duration

	// Proxied accounts need their own transport; cache one client per
	// distinct proxy spec so connections are reused across cycles.
	mu      sync.Mutex
	clients map[string]*http.Client
}

// Option configures the HTTPClient
type Option func(*HTTPClient)

// WithBaseURL overrides the remote service base URL
func WithBaseURL(baseURL string) Option {
	return func(c *HTTPClient) {
		c.baseURL = baseURL
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		c.timeout = timeout
	}
}

// WithVersion overrides the client version string sent with pings
func WithVersion(version string) Option {
	return func(c *HTTPClient) {
		c.version = version
	}
}

// NewHTTPClient creates a new remote service client
func NewHTTPClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
		timeout: DefaultTimeout,
		clients: make(map[string]*http.Client),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// Ping implements Client.Ping
func (c *HTTPClient) Ping(ctx context.Context, creds Credentials) error {
	body := PingRequest{
		UID:       creds.UID,
		BrowserID: creds.BrowserID,
		Timestamp: time.Now().Unix(),
		Version:   c.version,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode ping request: %w", err)
	}

	_, err = c.do(ctx, http.MethodPost, pingPath, creds, bytes.NewReader(payload))
	return err
}

// Info implements Client.Info
func (c *HTTPClient) Info(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, infoPath, creds, nil)
}

// do performs a single authenticated request and decodes the response
// envelope. Non-2xx status and envelope-level rejection are both errors.
func (c *HTTPClient) do(
	ctx context.Context, method, path string, creds Credentials, body io.Reader,
) (json.RawMessage, error) {
	reqURL := c.baseURL + path

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	client, err := c.clientFor(creds.Proxy)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewHTTPError(resp.StatusCode, reqURL, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if !env.Success {
		msg := env.Msg
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s", ErrRemoteRejected, msg)
	}

	return env.Data, nil
}

// clientFor returns the cached http.Client for the given proxy spec,
// creating one on first use. The empty spec maps to a direct client.
func (c *HTTPClient) clientFor(proxy string) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[proxy]; ok {
		return client, nil
	}

	client := &http.Client{Timeout: c.timeout}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	c.clients[proxy] = client
	return client, nil
}

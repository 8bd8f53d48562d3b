package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lojafacil/api/internal/platform/config"
)

const maxResponseBytes = 1 << 20

// ErrInvocationFailed indicates the function endpoint answered with a non-2xx
// status. Transport failures are returned as-is so callers can distinguish
// network degradation from function rejections.
var ErrInvocationFailed = errors.New("functions: invocation failed")

// Envelope is the common part of every serverless function response. Function
// specific fields are decoded alongside it by embedding Envelope in the
// caller's response struct.
type Envelope struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client invokes named serverless functions over HTTPS with a JSON
// body/response contract.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// ClientOption customises the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Intended for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs a Client from the functions configuration.
func NewClient(cfg config.FunctionsConfig, opts ...ClientOption) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("functions: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("functions: invalid base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client := &Client{
		baseURL:    base,
		authToken:  strings.TrimSpace(cfg.AuthToken),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Invoke posts the payload to the named function and decodes the JSON response
// into out. out should embed Envelope to capture the common fields.
func (c *Client) Invoke(ctx context.Context, name string, payload any, out any) error {
	if c == nil || c.httpClient == nil {
		return errors.New("functions: client not initialised")
	}
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return errors.New("functions: function name is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("functions: encode %s request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+name, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("functions: build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("functions: invoke %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("functions: read %s response: %w", name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d", ErrInvocationFailed, name, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("functions: decode %s response: %w", name, err)
	}
	return nil
}

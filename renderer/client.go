// Package renderer is the HTTP client for the document rendering service.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"discoverydraft-backend/models"
	"discoverydraft-backend/pipeline"

	"go.uber.org/zap"
)

const (
	renderPath = "/render"

	// maxErrorBody caps how much of a failed response is kept in the error
	maxErrorBody = 4 << 10
)

// Client submits generation requests to the rendering service. Failures are
// classified as pipeline.TransientError or pipeline.FatalError so the
// dispatcher knows whether to retry.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption is a functional option for Client
type ClientOption func(*Client)

// WithToken sets the bearer token sent with each request
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the service at endpoint
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("renderer endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("renderer endpoint must be an http(s) URL: %q", endpoint)
	}

	c := &Client{
		endpoint: endpoint,
		// per-attempt deadlines come from the caller's context
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Render posts one generation request. 2xx is success; 408, 429, 5xx and
// transport errors are transient; any other status is fatal.
func (c *Client) Render(ctx context.Context, req models.GenerationRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return pipeline.NewFatalError(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+renderPath, bytes.NewReader(jsonData))
	if err != nil {
		return pipeline.NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	httpReq.Header.Set("X-Request-ID", req.RequestID)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pipeline.NewTransientError(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Debug("Render accepted",
			zap.String("request_id", req.RequestID),
			zap.Int("status", resp.StatusCode))
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	c.logger.Warn("Renderer returned error",
		zap.String("request_id", req.RequestID),
		zap.Int("status", resp.StatusCode),
		zap.String("body", apiErr.Body))

	if retryable(resp.StatusCode) {
		return pipeline.NewTransientError(apiErr)
	}
	return pipeline.NewFatalError(apiErr)
}

// StatusError is a non-2xx response from the rendering service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("renderer error: %d", e.StatusCode)
	}
	return fmt.Sprintf("renderer error: %d - %s", e.StatusCode, e.Body)
}

func retryable(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	}
	return false
}

// Package client implements the HTTP client for the AppSheet REST API.
// Every logical operation (Add, Find, Edit, Delete) is a single POST to the
// table's Action endpoint; transient failures are retried with exponential
// backoff and terminal failures are translated to typed errors.
package client

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

	"github.com/juju/clock"
	"github.com/juju/retry"
	"go.uber.org/zap"

	appsheet "github.com/shibukawa/appsheet"
)

// DefaultBaseURL is the hosted AppSheet API endpoint.
const DefaultBaseURL = "https://api.appsheet.com/api/v2"

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 1 * time.Second
	maxRetryDelay        = 10 * time.Second
	defaultTimeout       = 30 * time.Second
)

// Action names on the wire.
const (
	ActionAdd    = "Add"
	ActionFind   = "Find"
	ActionEdit   = "Edit"
	ActionDelete = "Delete"
)

// Client issues Action calls for one AppSheet application.
type Client struct {
	appID          string
	accessKey      string
	baseURL        string
	httpClient     *http.Client
	retryAttempts  int
	retryDelay     time.Duration
	runAsUserEmail string
	clock          clock.Clock
	logger         *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, e.g. for a regional host or a
// test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient supplies the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the transport-level request timeout. Retries are not
// cancelled by this timeout; use the request context for an overall bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetryAttempts sets the total attempt budget (first call included).
func WithRetryAttempts(n int) Option {
	return func(c *Client) { c.retryAttempts = n }
}

// WithRetryDelay sets the initial backoff delay. The delay doubles per
// attempt and is capped at 10 seconds.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithRunAsUserEmail sets the client-wide identity used for audit
// attribution when the caller does not supply one per request.
func WithRunAsUserEmail(email string) Option {
	return func(c *Client) { c.runAsUserEmail = email }
}

// WithLogger attaches a structured logger. Retried attempts and response
// warnings are logged; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock overrides the clock used for backoff delays in tests.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// New creates a client for one application.
func New(appID, accessKey string, opts ...Option) *Client {
	c := &Client{
		appID:         appID,
		accessKey:     accessKey,
		baseURL:       DefaultBaseURL,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
		clock:         clock.WallClock,
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RunAsUserEmail returns the client-wide default identity.
func (c *Client) RunAsUserEmail() string {
	return c.runAsUserEmail
}

type actionRequest struct {
	Action     string              `json:"Action"`
	Properties appsheet.Properties `json:"Properties"`
	Rows       []appsheet.Row      `json:"Rows"`
}

type actionResponse struct {
	Rows     []appsheet.Row `json:"Rows,omitempty"`
	Warnings []string       `json:"Warnings,omitempty"`
	Message  string         `json:"error,omitempty"`
}

// Invoke performs one Action call against a table, retrying transient
// failures. Rows may be nil for Find. The returned rows are whatever the
// API echoed back.
func (c *Client) Invoke(ctx context.Context, tableName, action string, props *appsheet.Properties, rows []appsheet.Row) ([]appsheet.Row, error) {
	endpoint := fmt.Sprintf("%s/apps/%s/tables/%s/Action", c.baseURL, url.PathEscape(c.appID), url.PathEscape(tableName))

	payload, err := json.Marshal(actionRequest{
		Action:     action,
		Properties: c.mergeProperties(props),
		Rows:       rows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var (
		result  actionResponse
		lastErr error
	)

	err = retry.Call(retry.CallArgs{
		Func: func() error {
			lastErr = c.post(ctx, endpoint, payload, &result)
			return lastErr
		},
		IsFatalError: func(err error) bool {
			return !isRetryable(err)
		},
		NotifyFunc: func(err error, attempt int) {
			c.logger.Warn("retrying request",
				zap.String("table", tableName),
				zap.String("action", action),
				zap.Int("attempt", attempt),
				zap.Error(err))
		},
		Attempts:    c.retryAttempts,
		Delay:       c.retryDelay,
		MaxDelay:    maxRetryDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       c.clock,
		Stop:        ctx.Done(),
	})

	switch {
	case err == nil:
	case retry.IsAttemptsExceeded(err):
		return nil, lastErr
	case retry.IsRetryStopped(err):
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, lastErr
	default:
		return nil, err
	}

	for _, warning := range result.Warnings {
		c.logger.Warn("api warning",
			zap.String("table", tableName),
			zap.String("action", action),
			zap.String("warning", warning))
	}

	return result.Rows, nil
}

// post performs a single HTTP round trip. A transport failure maps to a
// network error with no status; a non-2xx status is classified by code.
func (c *Client) post(ctx context.Context, endpoint string, payload []byte, out *actionResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ApplicationAccessKey", c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return appsheet.ClassifyStatus(0, err.Error(), nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return appsheet.ClassifyStatus(0, err.Error(), nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := apiMessage(body)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}

		return appsheet.ClassifyStatus(resp.StatusCode, message, string(body))
	}

	// An empty body is a valid success response for mutating actions.
	if len(bytes.TrimSpace(body)) == 0 {
		*out = actionResponse{}
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// isRetryable reports whether a failed attempt should be retried: network
// failures, request timeouts (408) and server errors (>=500). Everything
// else fails immediately.
func isRetryable(err error) bool {
	var apiErr *appsheet.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch {
	case apiErr.StatusCode == 0:
		return true
	case apiErr.StatusCode == http.StatusRequestTimeout:
		return true
	case apiErr.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// mergeProperties folds caller properties over the client defaults.
func (c *Client) mergeProperties(props *appsheet.Properties) appsheet.Properties {
	var merged appsheet.Properties
	if props != nil {
		merged = *props
	}

	if merged.RunAsUserEmail == "" {
		merged.RunAsUserEmail = c.runAsUserEmail
	}

	return merged
}

// apiMessage extracts the error message from a failure payload when the
// body is JSON; otherwise the raw body is used by the caller.
func apiMessage(body []byte) string {
	var payload actionResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	return payload.Message
}

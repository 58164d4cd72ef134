// Package api is a small JSON client for the procurement REST API: it submits
// validated form payloads, lists resources and loads lookup collections.
package api

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

	"go.uber.org/zap"

	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/model"
)

const defaultTimeout = 15 * time.Second

// Client talks to one API base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	token   string
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithToken sends token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTimeout bounds every request. Zero disables the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("api: base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:    base,
		http:    http.DefaultClient,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Submit sends payload as JSON with method to endpoint. Any non-2xx answer is
// returned as a *StatusError.
func (c *Client) Submit(ctx context.Context, method, endpoint string, payload map[string]any) error {
	if method == "" {
		method = http.MethodPost
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("api: encode payload: %w", err)
	}
	return c.do(ctx, method, endpoint, bytes.NewReader(body), nil)
}

// SubmitFunc adapts Submit to a form, using its endpoint and method.
func (c *Client) SubmitFunc(schema model.FormModel) form.SubmitFunc {
	return func(ctx context.Context, payload map[string]any) error {
		return c.Submit(ctx, schema.Method, schema.Endpoint, payload)
	}
}

// List fetches resource and decodes its rows into out, which must be a
// pointer to a slice. Both a bare JSON array and a {"data": [...]} envelope
// are accepted.
func (c *Client) List(ctx context.Context, resource string, out any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, resource, nil, &raw); err != nil {
		return err
	}
	rows := raw
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return fmt.Errorf("api: decode %s: %w", resource, err)
		}
		rows = envelope.Data
	}
	if len(bytes.TrimSpace(rows)) == 0 || bytes.Equal(bytes.TrimSpace(rows), []byte("null")) {
		rows = []byte("[]")
	}
	if err := json.Unmarshal(rows, out); err != nil {
		return fmt.Errorf("api: decode %s: %w", resource, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.resolve(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return fmt.Errorf("api: %s %s: %w", method, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) resolve(endpoint string) string {
	ref, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || ref.IsAbs() {
		return endpoint
	}
	base := *c.base
	base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	base.RawQuery = ref.RawQuery
	return base.String()
}

// StatusError is a non-2xx API answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

// StatusCode returns the HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Code == code
}

func newStatusError(code int, body []byte) *StatusError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = firstNonEmpty(payload.Message, payload.Error)
	}
	return &StatusError{Code: code, Message: msg}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

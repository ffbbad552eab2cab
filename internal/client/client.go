package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/config"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/pagination"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 30 * time.Second

// Client talks to the ProjectMate API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig creates a client for the configured server and session.
func FromConfig(cfg *config.Config) *Client {
	return New(cfg.ServerURL, WithToken(cfg.Token))
}

// SetToken replaces the session token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the API address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Code       apperr.Code      `json:"code"`
	Data       json.RawMessage  `json:"data"`
	Pagination *pagination.Page `json:"pagination"`
}

// kindOf maps an HTTP status back to an error kind.
func kindOf(status int) apperr.Kind {
	switch status {
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusConflict:
		return apperr.KindConflict
	case http.StatusGone:
		return apperr.KindExpired
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.KindValidation
	default:
		return apperr.KindInternal
	}
}

// do sends one request and decodes the envelope's data into out. Error
// responses come back as *apperr.Error carrying the server's code and
// message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (*pagination.Page, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("API request failed", logger.F("method", method), logger.F("path", path), logger.Err(err))
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()
	logger.Debug("API request",
		logger.F("method", method),
		logger.F("path", path),
		logger.F("status", resp.StatusCode),
		logger.F("duration", time.Since(start)))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, apperr.New(kindOf(resp.StatusCode), "", fmt.Sprintf("%s %s: %s", method, path, resp.Status))
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, apperr.New(kindOf(resp.StatusCode), env.Code, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return env.Pagination, nil
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	return q
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
	return err
}

// Package backend is the HTTP client for the MyBusTimes API: thread
// existence and creation, message relay, ticket lookup, session-key
// authentication, and the site-side badge and fleet endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/neststoplabs/mbtbridge/internal/config"
)

// ErrNotFound marks a read that the backend answered with 404.
var ErrNotFound = errors.New("backend: not found")

// Client talks to the MyBusTimes backend. The underlying http.Client is
// shared and reentrant-safe; every call carries the configured timeout.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	siteURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient builds a backend client from configuration. Both base URLs are
// normalized without a trailing slash.
func NewClient(log *slog.Logger, cfg config.BackendConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		logger:     log.With(slog.String("component", "backend")),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		siteURL:    strings.TrimRight(cfg.SiteURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, headers map[string]string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.httpClient.Do(req)
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// drain consumes and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s: backend returned %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}

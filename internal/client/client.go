// Package client wraps the zakat REST API. Each method maps to one endpoint,
// makes exactly one attempt, and returns *APIError for non-2xx responses.
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

	"go.uber.org/zap"

	"zakat-tracker/internal/logger"
	"zakat-tracker/internal/models"
	"zakat-tracker/internal/session"
)

// Client calls the zakat API on behalf of the session held in its store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logger.OrNop(l) }
}

// New creates a client for the API at baseURL reading tokens from store.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates an account. No token is involved.
func (c *Client) Register(ctx context.Context, u models.NewUser) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", false, u, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token. The API expects a
// form-encoded body with the email in the username field.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok models.Token
	if err := c.do(req, &tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// CurrentUser returns the profile of the session's user.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", true, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Entries lists the session user's entries, newest first.
func (c *Client) Entries(ctx context.Context) ([]models.Entry, error) {
	var entries []models.Entry
	if err := c.doJSON(ctx, http.MethodGet, "/zakat", true, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Entry fetches one entry.
func (c *Client) Entry(ctx context.Context, id string) (*models.Entry, error) {
	var e models.Entry
	if err := c.doJSON(ctx, http.MethodGet, "/zakat/"+url.PathEscape(id), true, nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEntry records a new entry.
func (c *Client) CreateEntry(ctx context.Context, in models.EntryInput) (*models.Entry, error) {
	var e models.Entry
	if err := c.doJSON(ctx, http.MethodPost, "/zakat", true, in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEntry applies a partial update to an entry.
func (c *Client) UpdateEntry(ctx context.Context, id string, u models.EntryUpdate) (*models.Entry, error) {
	var e models.Entry
	if err := c.doJSON(ctx, http.MethodPut, "/zakat/"+url.PathEscape(id), true, u, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEntry removes an entry.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/zakat/"+url.PathEscape(id), true, nil, nil)
}

// Statistics fetches the aggregate summary.
func (c *Client) Statistics(ctx context.Context) (*models.Statistics, error) {
	var stats models.Statistics
	if err := c.doJSON(ctx, http.MethodGet, "/zakat/statistics/summary", true, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, authenticated bool, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		if err := c.authorize(req); err != nil {
			return err
		}
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// authorize attaches the stored token. Without one the request goes out
// unauthenticated and the server decides.
func (c *Client) authorize(req *http.Request) error {
	token, err := c.store.Token()
	if err != nil {
		return fmt.Errorf("read session token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

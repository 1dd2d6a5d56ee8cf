// Package client talks to the subscription API served by cmd/server.
// Every call is a single request; nothing is retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"entitlement-api/internal/models"
)

const defaultTimeout = 10 * time.Second

// APIError is returned for any non-2xx answer.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("subscription api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("subscription api: status %d: %s", e.StatusCode, e.Message)
}

// Client is a thin wrapper around the /api/subscriptions routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "entitlementctl/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckoutRequest mirrors the checkout body.
type CheckoutRequest struct {
	Email     string      `json:"email"`
	Plan      models.Plan `json:"plan"`
	PaymentID string      `json:"payment_id,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// Checkout is a created subscription with its credentials.
type Checkout struct {
	Subscription     models.SubscriptionView `json:"subscription"`
	AccessToken      string                  `json:"access_token"`
	MobileAccessCode string                  `json:"mobile_access_code"`
}

// Activation is the answer to a mobile access code exchange.
type Activation struct {
	AccessToken string      `json:"access_token"`
	Plan        models.Plan `json:"plan"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Verification is the server's view of an access token.
type Verification struct {
	Valid     bool        `json:"valid"`
	Plan      models.Plan `json:"plan"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (c *Client) Checkout(ctx context.Context, in CheckoutRequest) (*Checkout, error) {
	var out Checkout
	if err := c.do(ctx, http.MethodPost, "/api/subscriptions", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Activate(ctx context.Context, code string) (*Activation, error) {
	var out Activation
	body := map[string]string{"code": code}
	if err := c.do(ctx, http.MethodPost, "/api/subscriptions/activate", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, token string) (*Verification, error) {
	var out Verification
	if err := c.do(ctx, http.MethodGet, "/api/subscriptions/verify", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel soft-cancels the subscription behind token.
func (c *Client) Cancel(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/subscriptions/cancel", token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newAPIError(status int, data []byte) *APIError {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(data, &body)
	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	return &APIError{StatusCode: status, Message: msg}
}

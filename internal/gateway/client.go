package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client implements ExecutionGateway over the venue's HTTP API.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new execution gateway client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ ExecutionGateway = (*Client)(nil)

// Buy places a buy order.
func (c *Client) Buy(ctx context.Context, params TradeParams) (*TradeResponse, error) {
	return c.trade(ctx, "/trade/buy", params)
}

// Sell places a sell order.
func (c *Client) Sell(ctx context.Context, params TradeParams) (*TradeResponse, error) {
	return c.trade(ctx, "/trade/sell", params)
}

// errorResponse is the venue's error payload.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// trade performs one trade request with bounded exponential backoff on
// transient failures. Classified errors (insufficient funds, invalid
// account) fail immediately.
func (c *Client) trade(ctx context.Context, path string, params TradeParams) (*TradeResponse, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal trade request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		resp, err := c.doTrade(ctx, path, body)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInvalidAccount) || errors.Is(err, ErrRejected) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("gateway request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) doTrade(ctx context.Context, path string, body []byte) (*TradeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var result TradeResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return &result, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited (429)")

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			switch errResp.Code {
			case "INSUFFICIENT_FUNDS":
				return nil, ErrInsufficientFunds
			case "INVALID_ACCOUNT":
				return nil, ErrInvalidAccount
			}
			return nil, fmt.Errorf("%w: %s", ErrRejected, errResp.Message)
		}
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)

	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
}

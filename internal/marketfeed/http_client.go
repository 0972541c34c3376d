package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"solana-trade-engine/internal/domain"
)

// DefaultHTTPTimeout bounds price and metadata requests.
const DefaultHTTPTimeout = 10 * time.Second

// priceResponse is the feed's price payload.
type priceResponse struct {
	Price float64 `json:"price"`
}

// metadataResponse is the feed's token metadata payload.
type metadataResponse struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Decimals        int     `json:"decimals"`
	Supply          float64 `json:"supply"`
	Holders         int     `json:"holders"`
	LiquidityLocked float64 `json:"liquidityLocked"`
	Top10Holdings   float64 `json:"top10Holdings"`
}

// HTTPClient fetches prices and token metadata over the feed's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a new market feed REST client.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
	}
}

// GetCurrentPrice returns the current price for a token.
func (c *HTTPClient) GetCurrentPrice(ctx context.Context, tokenAddress string) (float64, error) {
	var resp priceResponse
	if err := c.get(ctx, "/token-price", tokenAddress, &resp); err != nil {
		return 0, err
	}
	return resp.Price, nil
}

// GetTokenMetadata returns rug-check metadata for a token.
func (c *HTTPClient) GetTokenMetadata(ctx context.Context, tokenAddress string) (*domain.TokenMetadata, error) {
	var resp metadataResponse
	if err := c.get(ctx, "/token-metadata", tokenAddress, &resp); err != nil {
		return nil, err
	}
	return &domain.TokenMetadata{
		Address:         tokenAddress,
		Symbol:          resp.Symbol,
		Name:            resp.Name,
		Decimals:        resp.Decimals,
		Supply:          resp.Supply,
		Holders:         resp.Holders,
		LiquidityLocked: resp.LiquidityLocked,
		Top10Holdings:   resp.Top10Holdings,
	}, nil
}

func (c *HTTPClient) get(ctx context.Context, path, tokenAddress string, out any) error {
	q := url.Values{}
	q.Set("address", tokenAddress)
	q.Set("api-key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
)

// WSConfig configures the new-pool subscription transport.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// EventBuffer is the delivery channel capacity.
	EventBuffer int
}

// DefaultWSConfig returns default subscription configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		EventBuffer:       64,
	}
}

// Client is the full market feed: REST for prices and metadata plus a
// reconnecting WebSocket subscription for pool-creation events.
type Client struct {
	*HTTPClient

	wsEndpoint string
	wsConfig   WSConfig
	log        zerolog.Logger
}

// NewClient creates a new market feed client.
func NewClient(baseURL, wsEndpoint, apiKey string, cfg *WSConfig, log zerolog.Logger) *Client {
	wsCfg := DefaultWSConfig()
	if cfg != nil {
		wsCfg = *cfg
	}
	return &Client{
		HTTPClient: NewHTTPClient(baseURL, apiKey),
		wsEndpoint: wsEndpoint,
		wsConfig:   wsCfg,
		log:        log,
	}
}

// Compile-time interface check.
var _ Feed = (*Client)(nil)

// subscribeRequest asks the feed to push pool-creation events.
type subscribeRequest struct {
	Method string `json:"method"`
}

// poolNotification is one pushed pool-creation message.
type poolNotification struct {
	Method string `json:"method"`
	Params struct {
		Address      string  `json:"address"`
		TokenAddress string  `json:"tokenAddress"`
		TokenSymbol  string  `json:"tokenSymbol"`
		TokenName    string  `json:"tokenName"`
		Liquidity    float64 `json:"liquidity"`
		PriceUSD     float64 `json:"priceUsd"`
		CreatedAtMs  int64   `json:"createdAt"`
	} `json:"params"`
}

// SubscribeNewPools delivers pool-creation events until ctx is
// cancelled, reconnecting with bounded backoff on transport failures.
func (c *Client) SubscribeNewPools(ctx context.Context) (<-chan domain.PoolEvent, error) {
	events := make(chan domain.PoolEvent, c.wsConfig.EventBuffer)

	go func() {
		defer close(events)

		delay := c.wsConfig.ReconnectDelay
		for {
			if ctx.Err() != nil {
				return
			}

			err := c.readSession(ctx, events)
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Dur("retry_in", delay).Msg("pool subscription lost, reconnecting")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = delay * 2
			if delay > c.wsConfig.MaxReconnectDelay {
				delay = c.wsConfig.MaxReconnectDelay
			}
		}
	}()

	return events, nil
}

// readSession runs one connect-subscribe-read cycle. Returns when the
// connection fails or ctx is cancelled.
func (c *Client) readSession(ctx context.Context, events chan<- domain.PoolEvent) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// Tear the connection down when ctx is cancelled so the blocked
	// read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(subscribeRequest{Method: "poolSubscribe"}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.log.Info().Str("endpoint", c.wsEndpoint).Msg("subscribed to new pools")

	for {
		if c.wsConfig.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.wsConfig.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		var note poolNotification
		if err := json.Unmarshal(data, &note); err != nil {
			c.log.Error().Err(err).Msg("malformed pool notification")
			continue
		}
		if note.Method != "poolNotification" || note.Params.TokenAddress == "" {
			continue
		}

		event := domain.PoolEvent{
			Address:      note.Params.Address,
			TokenAddress: note.Params.TokenAddress,
			TokenSymbol:  note.Params.TokenSymbol,
			TokenName:    note.Params.TokenName,
			Liquidity:    note.Params.Liquidity,
			PriceUSD:     note.Params.PriceUSD,
			CreatedAt:    time.UnixMilli(note.Params.CreatedAtMs),
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Drop rather than block the reader when the consumer lags.
			c.log.Warn().Str("token", event.TokenAddress).Msg("event buffer full, dropping pool event")
		}
	}
}

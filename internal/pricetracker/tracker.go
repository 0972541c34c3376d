// Package pricetracker polls token prices and fans them out to
// subscribers. One poller runs per token regardless of how many
// strategies watch it; the poller exits when the last subscriber
// leaves.
package pricetracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-trade-engine/internal/marketfeed"
	"solana-trade-engine/internal/observability"
)

// DefaultPollInterval is how often each token poller asks the feed for
// a fresh price.
const DefaultPollInterval = 5 * time.Second

// Update is one observed price for a token.
type Update struct {
	TokenAddress string
	Price        float64
	ObservedAt   time.Time
}

// Handler receives price updates. Handlers run on the poller goroutine
// and must return quickly.
type Handler func(Update)

// Tracker multiplexes per-token price polling across subscribers.
type Tracker struct {
	feed     marketfeed.Feed
	metrics  *observability.Metrics
	log      zerolog.Logger
	interval time.Duration

	mu       sync.Mutex
	pollers  map[string]*poller
	baseCtx  context.Context
	stopAll  context.CancelFunc
	wg       sync.WaitGroup
	shutdown bool
	nextID   uint64
}

type poller struct {
	cancel      context.CancelFunc
	subscribers map[uint64]Handler
}

// New creates a tracker. interval <= 0 uses DefaultPollInterval;
// metrics may be nil.
func New(feed marketfeed.Feed, metrics *observability.Metrics, log zerolog.Logger, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		feed:     feed,
		metrics:  metrics,
		log:      log.With().Str("component", "price_tracker").Logger(),
		interval: interval,
		pollers:  make(map[string]*poller),
		baseCtx:  ctx,
		stopAll:  cancel,
	}
}

// Subscribe registers fn for price updates on tokenAddress and returns
// an unsubscribe function. The first subscriber for a token starts its
// poller; removing the last one stops it. Unsubscribing twice is
// harmless.
func (t *Tracker) Subscribe(tokenAddress string, fn Handler) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shutdown {
		return func() {}
	}

	id := t.nextID
	t.nextID++

	p, ok := t.pollers[tokenAddress]
	if !ok {
		ctx, cancel := context.WithCancel(t.baseCtx)
		p = &poller{
			cancel:      cancel,
			subscribers: make(map[uint64]Handler),
		}
		t.pollers[tokenAddress] = p
		t.wg.Add(1)
		go t.pollLoop(ctx, tokenAddress)
	}
	p.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() { t.unsubscribe(tokenAddress, id) })
	}
}

// Shutdown stops every poller and waits for them to exit.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	t.shutdown = true
	t.stopAll()
	t.pollers = make(map[string]*poller)
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Tracker) unsubscribe(tokenAddress string, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pollers[tokenAddress]
	if !ok {
		return
	}
	delete(p.subscribers, id)
	if len(p.subscribers) == 0 {
		p.cancel()
		delete(t.pollers, tokenAddress)
	}
}

func (t *Tracker) pollLoop(ctx context.Context, tokenAddress string) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			price, err := t.feed.GetCurrentPrice(ctx, tokenAddress)
			if err != nil {
				if t.metrics != nil {
					t.metrics.FeedErrors.Inc()
				}
				t.log.Warn().Err(err).Str("token", tokenAddress).Msg("price poll failed")
				continue
			}
			if t.metrics != nil {
				t.metrics.PriceRefreshes.Inc()
			}
			t.dispatch(Update{
				TokenAddress: tokenAddress,
				Price:        price,
				ObservedAt:   time.Now().UTC(),
			})
		}
	}
}

func (t *Tracker) dispatch(u Update) {
	t.mu.Lock()
	p, ok := t.pollers[u.TokenAddress]
	if !ok {
		t.mu.Unlock()
		return
	}
	handlers := make([]Handler, 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		handlers = append(handlers, fn)
	}
	t.mu.Unlock()

	for _, fn := range handlers {
		fn(u)
	}
}

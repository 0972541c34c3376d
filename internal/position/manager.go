// Package position tracks open holdings: volume-weighted entry prices,
// unrealized and realized PnL, and a background mark-to-market refresh
// per open position.
package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/marketfeed"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// Default tuning. Tests override these via Config.
const (
	DefaultPriceCacheTTL   = 5 * time.Second
	DefaultRefreshInterval = 10 * time.Second
)

// ErrPositionClosed is returned when an operation requires an open
// position.
var ErrPositionClosed = errors.New("position: position is closed")

const maxUpdateRetries = 5

// Config tunes the manager's cache and refresh behavior. Zero values
// fall back to the defaults.
type Config struct {
	PriceCacheTTL   time.Duration
	RefreshInterval time.Duration
}

// OpenInput describes one executed buy to record as (part of) a
// position.
type OpenInput struct {
	WalletID     string
	TokenAddress string
	Quantity     float64
	Price        float64
}

// UpdateInput carries partial position updates. Nil fields are left
// untouched.
type UpdateInput struct {
	Quantity     *float64
	CurrentPrice *float64
	Status       *string
}

// Manager owns position lifecycle: open, merge, mark-to-market, close.
// It serializes merges per (walletID, tokenAddress) so concurrent buys
// into the same token produce one position with a correct
// volume-weighted entry price.
type Manager struct {
	positions storage.PositionStore
	feed      marketfeed.Feed
	notifier  notify.Notifier
	metrics   *observability.Metrics
	log       zerolog.Logger

	cacheTTL        time.Duration
	refreshInterval time.Duration

	cacheMu sync.Mutex
	cache   map[string]cachedPrice

	mergeMu sync.Mutex
	merges  map[string]*sync.Mutex

	trackMu  sync.Mutex
	cancels  map[string]context.CancelFunc
	baseCtx  context.Context
	stopAll  context.CancelFunc
	wg       sync.WaitGroup
	shutdown bool
}

type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

// NewManager creates a position manager. metrics may be nil.
func NewManager(positions storage.PositionStore, feed marketfeed.Feed, notifier notify.Notifier, metrics *observability.Metrics, log zerolog.Logger, cfg Config) *Manager {
	if cfg.PriceCacheTTL <= 0 {
		cfg.PriceCacheTTL = DefaultPriceCacheTTL
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		positions:       positions,
		feed:            feed,
		notifier:        notifier,
		metrics:         metrics,
		log:             log.With().Str("component", "position_manager").Logger(),
		cacheTTL:        cfg.PriceCacheTTL,
		refreshInterval: cfg.RefreshInterval,
		cache:           make(map[string]cachedPrice),
		merges:          make(map[string]*sync.Mutex),
		cancels:         make(map[string]context.CancelFunc),
		baseCtx:         ctx,
		stopAll:         cancel,
	}
}

// CurrentPrice returns the feed price for a token through a short TTL
// cache. A feed failure is reported as price 0 so decision loops can
// skip the tick instead of dying.
func (m *Manager) CurrentPrice(ctx context.Context, tokenAddress string) float64 {
	m.cacheMu.Lock()
	if c, ok := m.cache[tokenAddress]; ok && time.Since(c.fetchedAt) < m.cacheTTL {
		m.cacheMu.Unlock()
		return c.price
	}
	m.cacheMu.Unlock()

	price, err := m.feed.GetCurrentPrice(ctx, tokenAddress)
	if err != nil {
		if m.metrics != nil {
			m.metrics.FeedErrors.Inc()
		}
		m.log.Warn().Err(err).Str("token", tokenAddress).Msg("price fetch failed")
		return 0
	}

	m.cacheMu.Lock()
	m.cache[tokenAddress] = cachedPrice{price: price, fetchedAt: time.Now()}
	m.cacheMu.Unlock()
	return price
}

// Open records a buy as a new OPEN position and starts its refresh
// loop.
func (m *Manager) Open(ctx context.Context, in OpenInput) (*domain.Position, error) {
	now := time.Now().UTC()
	p := &domain.Position{
		ID:           uuid.NewString(),
		WalletID:     in.WalletID,
		TokenAddress: in.TokenAddress,
		Quantity:     in.Quantity,
		EntryPrice:   in.Price,
		CurrentPrice: in.Price,
		Status:       domain.PositionStatusOpen,
		OpenedAt:     now,
		UpdatedAt:    now,
	}
	if err := m.positions.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("insert position: %w", err)
	}

	if m.metrics != nil {
		m.metrics.PositionsOpened.Inc()
	}
	m.notify("position_opened", p)
	m.startRefresh(p.ID, p.TokenAddress)
	m.log.Info().
		Str("position_id", p.ID).
		Str("token", p.TokenAddress).
		Float64("quantity", p.Quantity).
		Float64("entry_price", p.EntryPrice).
		Msg("position opened")
	return p, nil
}

// OpenOrMerge records a buy, merging it into the existing open position
// for the same (walletID, tokenAddress) if one exists. The merge
// recomputes the entry price as the volume-weighted average, so the
// result of N concurrent buys is independent of their interleaving.
func (m *Manager) OpenOrMerge(ctx context.Context, in OpenInput) (*domain.Position, error) {
	lock := m.mergeLock(in.WalletID, in.TokenAddress)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.positions.GetOpenByWalletToken(ctx, in.WalletID, in.TokenAddress)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return m.Open(ctx, in)
	case err != nil:
		return nil, fmt.Errorf("lookup position: %w", err)
	}

	merged, err := m.applyUpdate(ctx, existing.ID, func(p *domain.Position) error {
		if !p.IsOpen() {
			return ErrPositionClosed
		}
		total := p.Quantity + in.Quantity
		p.EntryPrice = (p.EntryPrice*p.Quantity + in.Price*in.Quantity) / total
		p.Quantity = total
		p.CurrentPrice = in.Price
		p.UnrealizedPnl = (p.CurrentPrice - p.EntryPrice) * p.Quantity
		return nil
	})
	if errors.Is(err, ErrPositionClosed) {
		// Closed between lookup and merge; start fresh.
		return m.Open(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	m.notify("position_updated", merged)
	return merged, nil
}

// Get retrieves a position by id.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Position, error) {
	return m.positions.GetByID(ctx, id)
}

// Update applies a partial update. Setting quantity to zero forces the
// position CLOSED; a price update recomputes unrealized PnL; an
// explicit status wins over the derived one. Updates on a closed
// position leave quantity and unrealized PnL at zero.
func (m *Manager) Update(ctx context.Context, id string, in UpdateInput) (*domain.Position, error) {
	p, err := m.applyUpdate(ctx, id, func(p *domain.Position) error {
		if in.Quantity != nil {
			p.Quantity = *in.Quantity
			if p.Quantity == 0 {
				p.Status = domain.PositionStatusClosed
			}
		}
		if in.CurrentPrice != nil {
			p.CurrentPrice = *in.CurrentPrice
		}
		if in.Status != nil {
			p.Status = *in.Status
		}
		if p.Status == domain.PositionStatusClosed {
			p.Quantity = 0
			p.UnrealizedPnl = 0
			if p.ClosedAt == nil {
				now := time.Now().UTC()
				p.ClosedAt = &now
			}
		} else {
			p.UnrealizedPnl = (p.CurrentPrice - p.EntryPrice) * p.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.Status == domain.PositionStatusClosed {
		m.stopRefresh(p.ID)
	}
	m.notify("position_updated", p)
	return p, nil
}

// Close settles the position at exitPrice: realized PnL becomes
// (exit - entry) * quantity, quantity and unrealized PnL zero out, and
// the refresh loop stops. Closing an already-closed position is a
// no-op returning the stored state.
func (m *Manager) Close(ctx context.Context, id string, exitPrice float64) (*domain.Position, error) {
	p, err := m.applyUpdate(ctx, id, func(p *domain.Position) error {
		if !p.IsOpen() {
			return nil
		}
		p.RealizedPnl += (exitPrice - p.EntryPrice) * p.Quantity
		p.Quantity = 0
		p.UnrealizedPnl = 0
		p.CurrentPrice = exitPrice
		p.Status = domain.PositionStatusClosed
		now := time.Now().UTC()
		p.ClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.stopRefresh(id)
	if m.metrics != nil {
		m.metrics.PositionsClosed.Inc()
	}
	m.notify("position_closed", p)
	m.log.Info().
		Str("position_id", id).
		Float64("exit_price", exitPrice).
		Float64("realized_pnl", p.RealizedPnl).
		Msg("position closed")
	return p, nil
}

// Resume restarts the refresh loop for an already-persisted open
// position, e.g. after process restart.
func (m *Manager) Resume(ctx context.Context, id string) error {
	p, err := m.positions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsOpen() {
		return ErrPositionClosed
	}
	m.startRefresh(p.ID, p.TokenAddress)
	return nil
}

// Shutdown stops all refresh loops and waits for them to exit.
func (m *Manager) Shutdown() {
	m.trackMu.Lock()
	m.shutdown = true
	m.stopAll()
	m.cancels = make(map[string]context.CancelFunc)
	m.trackMu.Unlock()
	m.wg.Wait()
}

// applyUpdate runs a read-modify-write cycle with bounded retries on
// optimistic-concurrency conflicts.
func (m *Manager) applyUpdate(ctx context.Context, id string, mutate func(*domain.Position) error) (*domain.Position, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		p, err := m.positions.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(p); err != nil {
			return nil, err
		}
		p.UpdatedAt = time.Now().UTC()
		err = m.positions.Update(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return nil, fmt.Errorf("update position: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("update position %s: %w", id, lastErr)
}

func (m *Manager) mergeLock(walletID, tokenAddress string) *sync.Mutex {
	key := walletID + "|" + tokenAddress
	m.mergeMu.Lock()
	defer m.mergeMu.Unlock()
	lock, ok := m.merges[key]
	if !ok {
		lock = &sync.Mutex{}
		m.merges[key] = lock
	}
	return lock
}

// startRefresh launches the mark-to-market loop for a position. A
// second call for the same id is a no-op.
func (m *Manager) startRefresh(id, tokenAddress string) {
	m.trackMu.Lock()
	defer m.trackMu.Unlock()
	if m.shutdown {
		return
	}
	if _, ok := m.cancels[id]; ok {
		return
	}
	ctx, cancel := context.WithCancel(m.baseCtx)
	m.cancels[id] = cancel

	m.wg.Add(1)
	go m.refreshLoop(ctx, id, tokenAddress)
}

func (m *Manager) stopRefresh(id string) {
	m.trackMu.Lock()
	defer m.trackMu.Unlock()
	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}
}

func (m *Manager) refreshLoop(ctx context.Context, id, tokenAddress string) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			price := m.CurrentPrice(ctx, tokenAddress)
			if price == 0 {
				// Feed outage; keep the last mark.
				continue
			}
			if _, err := m.Update(ctx, id, UpdateInput{CurrentPrice: &price}); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					m.stopRefresh(id)
					return
				}
				m.log.Warn().Err(err).Str("position_id", id).Msg("position refresh failed")
				continue
			}
			if m.metrics != nil {
				m.metrics.PriceRefreshes.Inc()
			}
		}
	}
}

func (m *Manager) notify(event string, p *domain.Position) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify("", event, p)
}

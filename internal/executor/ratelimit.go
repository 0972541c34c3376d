package executor

import (
	"sync"
	"time"
)

// Default rate limit: trades per wallet per sliding window.
const (
	DefaultMaxTradesPerWindow = 10
	DefaultRateWindow         = 60 * time.Second
)

// RateLimiter enforces a per-wallet trade-frequency ceiling over a
// sliding window. Timestamps are kept in memory per wallet and pruned
// on each check; state is scoped to this process.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	trades map[string][]time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewRateLimiter creates a rate limiter allowing max trades per wallet
// in any window-sized interval.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = DefaultMaxTradesPerWindow
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		max:    max,
		window: window,
		trades: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether the wallet may trade now. It prunes expired
// timestamps but does not record a trade; call Record after the trade
// actually executes.
func (l *RateLimiter) Allow(walletID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(walletID)
	return len(recent) < l.max
}

// Record registers an executed trade for the wallet.
func (l *RateLimiter) Record(walletID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(walletID)
	l.trades[walletID] = append(recent, l.now())
}

// prune drops timestamps older than the window. Caller holds the lock.
func (l *RateLimiter) prune(walletID string) []time.Time {
	cutoff := l.now().Add(-l.window)
	timestamps := l.trades[walletID]

	recent := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	l.trades[walletID] = recent
	return recent
}

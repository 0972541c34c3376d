package pricetracker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/marketfeed/stub"
)

func newTestTracker(t *testing.T) (*Tracker, *stub.Feed) {
	t.Helper()
	feed := stub.NewFeed()
	tr := New(feed, nil, zerolog.Nop(), 10*time.Millisecond)
	t.Cleanup(tr.Shutdown)
	return tr, feed
}

func TestSubscriberReceivesUpdates(t *testing.T) {
	tr, feed := newTestTracker(t)
	feed.SetPrice("token-1", 3)

	got := make(chan Update, 16)
	unsub := tr.Subscribe("token-1", func(u Update) { got <- u })
	defer unsub()

	select {
	case u := <-got:
		assert.Equal(t, "token-1", u.TokenAddress)
		assert.Equal(t, 3.0, u.Price)
	case <-time.After(time.Second):
		t.Fatal("no price update delivered")
	}
}

func TestFanOutDeliversToAllSubscribers(t *testing.T) {
	tr, feed := newTestTracker(t)
	feed.SetPrice("token-1", 7)

	var a, b atomic.Int64
	unsubA := tr.Subscribe("token-1", func(Update) { a.Add(1) })
	defer unsubA()
	unsubB := tr.Subscribe("token-1", func(Update) { b.Add(1) })
	defer unsubB()

	require.Eventually(t, func() bool {
		return a.Load() > 0 && b.Load() > 0
	}, time.Second, 5*time.Millisecond, "both subscribers must see updates")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tr, feed := newTestTracker(t)
	feed.SetPrice("token-1", 1)

	var kept, dropped atomic.Int64
	unsubKept := tr.Subscribe("token-1", func(Update) { kept.Add(1) })
	defer unsubKept()
	unsubDropped := tr.Subscribe("token-1", func(Update) { dropped.Add(1) })

	require.Eventually(t, func() bool {
		return dropped.Load() > 0
	}, time.Second, 5*time.Millisecond)

	unsubDropped()
	base := dropped.Load()
	keptBase := kept.Load()

	// The remaining subscriber keeps receiving while the dropped one is
	// frozen.
	require.Eventually(t, func() bool {
		return kept.Load() > keptBase+2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, base, dropped.Load())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	tr, feed := newTestTracker(t)
	feed.SetPrice("token-1", 1)

	unsubA := tr.Subscribe("token-1", func(Update) {})
	unsubB := tr.Subscribe("token-1", func(Update) {})
	defer unsubB()

	unsubA()
	unsubA() // must not tear down the other subscription

	var seen atomic.Int64
	unsubC := tr.Subscribe("token-1", func(Update) { seen.Add(1) })
	defer unsubC()

	require.Eventually(t, func() bool {
		return seen.Load() > 0
	}, time.Second, 5*time.Millisecond)
}

func TestPollerStopsWhenLastSubscriberLeaves(t *testing.T) {
	tr, feed := newTestTracker(t)
	feed.SetPrice("token-1", 1)

	unsub := tr.Subscribe("token-1", func(Update) {})
	unsub()

	tr.mu.Lock()
	_, running := tr.pollers["token-1"]
	tr.mu.Unlock()
	assert.False(t, running, "poller must be torn down with its last subscriber")
}

func TestPollSurvivesFeedErrors(t *testing.T) {
	tr, feed := newTestTracker(t)
	feed.SetPriceErr(assert.AnError)

	var seen atomic.Int64
	unsub := tr.Subscribe("token-1", func(Update) { seen.Add(1) })
	defer unsub()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, seen.Load())

	// Feed recovers; updates resume on the same subscription.
	feed.SetPriceErr(nil)
	feed.SetPrice("token-1", 2)
	require.Eventually(t, func() bool {
		return seen.Load() > 0
	}, time.Second, 5*time.Millisecond)
}

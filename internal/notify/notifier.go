// Package notify delivers user-facing events to the dashboard relay.
// Delivery is fire-and-forget: failures are logged and never block a
// strategy loop.
package notify

import (
	"github.com/rs/zerolog"
)

// Notifier pushes one event toward the user. Implementations must not
// block and must swallow delivery failures.
type Notifier interface {
	Notify(strategyID, event string, payload any)
}

// LogNotifier writes notifications to the structured log. Used when no
// relay is configured and as the delivery fallback in tests.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Compile-time interface check.
var _ Notifier = (*LogNotifier)(nil)

// Notify logs the event.
func (n *LogNotifier) Notify(strategyID, event string, payload any) {
	n.log.Info().
		Str("strategy_id", strategyID).
		Str("event", event).
		Interface("payload", payload).
		Msg("notification")
}

// Fanout delivers each event to every wrapped notifier in order.
type Fanout []Notifier

var _ Notifier = Fanout(nil)

// Notify forwards the event to all wrapped notifiers.
func (f Fanout) Notify(strategyID, event string, payload any) {
	for _, n := range f {
		n.Notify(strategyID, event, payload)
	}
}

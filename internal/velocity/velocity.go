// Package velocity tracks per-number call frequency over a sliding window.
// Repeated calls from one number inside a short window are a strong spam
// signal; the count is exposed to the pattern analyzer's rule engine.
package velocity

import (
	"context"
	"log/slog"
	"time"
)

// Counter is the minimal cache surface the tracker needs.
type Counter interface {
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Tracker counts screening events per number within a rolling window.
type Tracker struct {
	counter Counter
	window  time.Duration
}

// DefaultWindow bounds the call-frequency observation period.
const DefaultWindow = time.Hour

// NewTracker creates a call-frequency tracker backed by the given counter.
func NewTracker(counter Counter, window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{counter: counter, window: window}
}

// Observe records one call event for the number and returns the count seen
// inside the current window. Counter failures return 0; frequency is a
// supplementary signal and must never fail a screening.
func (t *Tracker) Observe(ctx context.Context, number string) int64 {
	count, err := t.counter.IncrementCounter(ctx, number, t.window)
	if err != nil {
		slog.Warn("call frequency counter failed", "number", number, "error", err)
		return 0
	}
	return count
}

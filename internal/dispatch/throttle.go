// Package dispatch owns the path from a graded alert to its channels:
// dedup, cooldown, per-channel retry, the delivery journal, and the
// alert's final delivery status.
package dispatch

import (
	"sync"
	"time"

	"alert-systemv1/internal/model"
)

const defaultCooldown = 5 * time.Minute

// Throttle rate-limits dispatches per symbol: at most one alert inside
// the cooldown window, unless the action direction reverses.
type Throttle struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]throttleEntry
}

type throttleEntry struct {
	at      time.Time
	bullish bool
}

// NewThrottle creates a throttle. window <= 0 uses the 5m default.
func NewThrottle(window time.Duration) *Throttle {
	if window <= 0 {
		window = defaultCooldown
	}
	return &Throttle{
		window: window,
		last:   make(map[string]throttleEntry),
	}
}

// Allow reports whether the alert may dispatch at now, and records it
// when allowed. A direction reversal bypasses the window: a fresh
// bearish signal on a symbol that just fired bullish is exactly the
// case the operator wants to see immediately.
func (t *Throttle) Allow(a *model.Alert, now time.Time) bool {
	bullish := a.Action.Bullish()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.last[a.Key()]
	if ok && now.Sub(e.at) < t.window && e.bullish == bullish {
		return false
	}
	t.last[a.Key()] = throttleEntry{at: now, bullish: bullish}
	return true
}

package collab

import (
	"sync"
	"time"

	"github.com/cosketch/server/internal/app"
)

// EventLimiter is a sliding-window limiter keyed by connection. It guards
// the mutation router only; joins and leaves are never throttled.
type EventLimiter struct {
	mu      sync.Mutex
	history map[app.SessionID][]time.Time
	limit   int
	window  time.Duration
}

func NewEventLimiter(limit int, window time.Duration) *EventLimiter {
	return &EventLimiter{
		history: make(map[app.SessionID][]time.Time),
		limit:   limit,
		window:  window,
	}
}

func (l *EventLimiter) Allow(sid app.SessionID) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.window)

	attempts := l.history[sid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= l.limit {
		l.history[sid] = fresh
		return false
	}

	fresh = append(fresh, now)
	l.history[sid] = fresh
	return true
}

// Forget drops the window of a disconnected session.
func (l *EventLimiter) Forget(sid app.SessionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.history, sid)
}

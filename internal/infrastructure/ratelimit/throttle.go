package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientThrottle is a per-client token bucket used to shed request floods.
// It is process local and independent of the login attempt windows.
type ClientThrottle struct {
	mu      sync.Mutex
	clients map[string]*throttleEntry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	nowFn   func() time.Time
}

// NewClientThrottle allows perSecond sustained requests with the given burst per client
func NewClientThrottle(perSecond float64, burst int, idle time.Duration, nowFn func() time.Time) *ClientThrottle {
	if nowFn == nil {
		nowFn = time.Now
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &ClientThrottle{
		clients: make(map[string]*throttleEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    idle,
		nowFn:   nowFn,
	}
}

// Allow consumes one token for client
func (t *ClientThrottle) Allow(client string) bool {
	now := t.nowFn()

	t.mu.Lock()
	entry, ok := t.clients[client]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.clients[client] = entry
	}
	entry.lastSeen = now
	t.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// Sweep forgets clients idle for longer than the idle period and returns how many were dropped
func (t *ClientThrottle) Sweep() int {
	cutoff := t.nowFn().Add(-t.idle)

	t.mu.Lock()
	defer t.mu.Unlock()

	dropped := 0
	for k, e := range t.clients {
		if e.lastSeen.Before(cutoff) {
			delete(t.clients, k)
			dropped++
		}
	}
	return dropped
}

// Len reports how many clients are tracked
func (t *ClientThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

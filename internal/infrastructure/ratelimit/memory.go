package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements a sliding-window in-memory rate limiter.
type MemoryLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	nowFn    func() time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter. nowFn defaults to time.Now.
func NewMemoryLimiter(nowFn func() time.Time) *MemoryLimiter {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &MemoryLimiter{
		attempts: make(map[string][]time.Time),
		nowFn:    nowFn,
	}
}

// Allow implements domain.RateLimiter
func (l *MemoryLimiter) Allow(_ context.Context, identifier string, maxAttempts int, window time.Duration) (bool, error) {
	if err := checkArgs(identifier, maxAttempts, window); err != nil {
		return false, err
	}

	now := l.nowFn()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.attempts[identifier][:0]
	for _, ts := range l.attempts[identifier] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= maxAttempts {
		l.attempts[identifier] = kept
		return false, nil
	}

	l.attempts[identifier] = append(kept, now)
	return true, nil
}

// Reset drops the attempt log for identifier
func (l *MemoryLimiter) Reset(_ context.Context, identifier string) error {
	l.mu.Lock()
	delete(l.attempts, identifier)
	l.mu.Unlock()
	return nil
}

// Package ratelimit implements per-client admission control: a dual-window
// token bucket (per-minute and per-hour) keyed by client identity. Buckets
// are created lazily, consumed under a per-bucket lock, and swept when idle
// so the map does not grow without bound.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	// PerMinute and PerHour are independent windows; a request is admitted
	// only when both have budget.
	PerMinute int
	PerHour   int
	// IdleTTL is how long an untouched bucket survives a sweep. Must cover
	// the largest window or a sweep could hand a client fresh hour budget.
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

type window struct {
	remaining int
	resetAt   time.Time
}

// refill restores the full budget once the window has elapsed. Interval
// refill, not smoothed: the whole capacity returns at once.
func (w *window) refill(capacity int, period time.Duration, now time.Time) {
	if !now.Before(w.resetAt) {
		w.remaining = capacity
		w.resetAt = now.Add(period)
	}
}

type bucket struct {
	mu       sync.Mutex
	minute   window
	hour     window
	lastSeen time.Time
}

type Limiter struct {
	cfg Config
	log *zap.Logger

	mu      sync.RWMutex
	buckets map[string]*bucket
}

func New(cfg Config, log *zap.Logger) *Limiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 60
	}
	if cfg.PerHour <= 0 {
		cfg.PerHour = 1000
	}
	if cfg.IdleTTL < time.Hour {
		cfg.IdleTTL = time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{cfg: cfg, log: log, buckets: make(map[string]*bucket)}
}

// TryConsume takes one token from both windows of the identity's bucket.
// Admission is all-or-nothing: when either window is empty, neither is
// decremented and the request is rejected.
func (l *Limiter) TryConsume(identity string) bool {
	b := l.bucket(identity)
	now := l.cfg.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSeen = now
	b.minute.refill(l.cfg.PerMinute, time.Minute, now)
	b.hour.refill(l.cfg.PerHour, time.Hour, now)

	if b.minute.remaining < 1 || b.hour.remaining < 1 {
		return false
	}
	b.minute.remaining--
	b.hour.remaining--
	return true
}

// bucket returns the identity's bucket, creating it on first use. The
// double-checked write lock guarantees exactly one bucket per identity even
// when many first requests race; consuming never takes the map's write lock.
func (l *Limiter) bucket(identity string) *bucket {
	l.mu.RLock()
	b := l.buckets[identity]
	l.mu.RUnlock()
	if b != nil {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b := l.buckets[identity]; b != nil {
		return b
	}
	b = &bucket{}
	l.buckets[identity] = b
	return b
}

// Len reports the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Sweep periodically drops buckets untouched for longer than IdleTTL. Run it
// in its own goroutine; it returns when ctx is done.
func (l *Limiter) Sweep(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweepOnce()
		}
	}
}

func (l *Limiter) sweepOnce() {
	cutoff := l.cfg.Now().Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	removed := 0
	for identity, b := range l.buckets {
		b.mu.Lock()
		idle := b.lastSeen.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(l.buckets, identity)
			removed++
		}
	}
	remaining := len(l.buckets)
	l.mu.Unlock()

	if removed > 0 {
		l.log.Debug("swept idle rate-limit buckets",
			zap.Int("removed", removed), zap.Int("remaining", remaining))
	}
}

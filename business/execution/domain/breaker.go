// Package domain contains the core domain types for the execution context.
package domain

import (
	"sync"
	"time"
)

// BreakerConfig tunes the execution halt policy.
type BreakerConfig struct {
	// MaxFailures within Window trips the breaker.
	MaxFailures int

	// Window is the sliding interval failures are counted over.
	Window time.Duration

	// Cooldown is how long execution stays halted after tripping.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the standard halt policy: five failures
// inside five minutes halts execution for ten.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Window:      5 * time.Minute,
		Cooldown:    10 * time.Minute,
	}
}

// Breaker halts execution after repeated settlement failures. Unlike a
// request-level circuit breaker it counts failures over a sliding
// window, and a single success wipes the slate: settlement failures
// cluster around transient chain conditions, so one confirmation is
// strong evidence they passed.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu        sync.Mutex
	failures  []time.Time
	trippedAt time.Time
	tripped   bool
}

// NewBreaker creates a Breaker with the given policy.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{
		cfg: cfg,
		now: time.Now,
	}
}

// Allow reports whether execution may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tripped {
		if b.now().Sub(b.trippedAt) < b.cfg.Cooldown {
			return false
		}
		// Cooldown elapsed; reset and let the next attempt probe.
		b.tripped = false
		b.failures = b.failures[:0]
	}

	return true
}

// RecordFailure notes a settlement failure and trips the breaker when
// the window fills.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.failures = append(b.failures, now)
	b.prune(now)

	if len(b.failures) >= b.cfg.MaxFailures {
		b.tripped = true
		b.trippedAt = now
	}
}

// RecordSuccess clears the failure window.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = b.failures[:0]
	b.tripped = false
}

// Tripped reports whether the breaker is currently halting execution.
func (b *Breaker) Tripped() bool {
	return !b.Allow()
}

// FailureCount returns the number of failures inside the current
// window.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(b.now())
	return len(b.failures)
}

// prune drops failures older than the window. Caller holds the lock.
func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.cfg.Window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept
}

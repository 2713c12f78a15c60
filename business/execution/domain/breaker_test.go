package domain

import (
	"testing"
	"time"
)

// fakeClock lets tests drive the breaker's sense of time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := NewBreaker(cfg)
	b.now = clock.now
	return b, clock
}

func TestBreaker_TripsAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(DefaultBreakerConfig())

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		if !b.Allow() {
			t.Fatalf("breaker tripped after %d failures, threshold is 5", i+1)
		}
	}

	b.RecordFailure()
	if b.Allow() {
		t.Fatal("breaker should trip on the fifth failure")
	}
}

func TestBreaker_WindowSlides(t *testing.T) {
	b, clock := newTestBreaker(DefaultBreakerConfig())

	// Four failures, then wait for them to age out.
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	clock.advance(6 * time.Minute)

	if got := b.FailureCount(); got != 0 {
		t.Fatalf("FailureCount() = %d after window elapsed, want 0", got)
	}

	// A fresh failure alone must not trip.
	b.RecordFailure()
	if !b.Allow() {
		t.Fatal("breaker tripped on a single fresh failure")
	}
}

func TestBreaker_SuccessClearsWindow(t *testing.T) {
	b, _ := newTestBreaker(DefaultBreakerConfig())

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()

	if got := b.FailureCount(); got != 0 {
		t.Fatalf("FailureCount() = %d after success, want 0", got)
	}

	b.RecordFailure()
	if !b.Allow() {
		t.Fatal("breaker tripped despite cleared window")
	}
}

func TestBreaker_CooldownThenRecovery(t *testing.T) {
	b, clock := newTestBreaker(DefaultBreakerConfig())

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	if b.Allow() {
		t.Fatal("breaker should be tripped")
	}

	clock.advance(9 * time.Minute)
	if b.Allow() {
		t.Fatal("breaker released before cooldown elapsed")
	}

	clock.advance(2 * time.Minute)
	if !b.Allow() {
		t.Fatal("breaker should release after cooldown")
	}
	if got := b.FailureCount(); got != 0 {
		t.Errorf("FailureCount() = %d after release, want 0", got)
	}
}

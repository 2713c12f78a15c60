// Package snapshot provides a single-writer, many-reader published value.
// A writer swaps in a fresh immutable snapshot; readers load it without
// locking.
package snapshot

import (
	"sync/atomic"
	"time"
)

// Snapshot wraps a value with the time it was published.
type Snapshot[T any] struct {
	Value       T
	PublishedAt time.Time
}

// Cell holds the latest snapshot of T.
type Cell[T any] struct {
	ptr atomic.Pointer[Snapshot[T]]
}

// NewCell returns an empty cell.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{}
}

// Publish replaces the current snapshot with value.
func (c *Cell[T]) Publish(value T) {
	c.ptr.Store(&Snapshot[T]{
		Value:       value,
		PublishedAt: time.Now(),
	})
}

// Load returns the current snapshot, or ok=false when nothing has been
// published yet.
func (c *Cell[T]) Load() (Snapshot[T], bool) {
	p := c.ptr.Load()
	if p == nil {
		var zero Snapshot[T]
		return zero, false
	}
	return *p, true
}

// Age returns how long ago the current snapshot was published. It
// returns ok=false when nothing has been published.
func (c *Cell[T]) Age() (time.Duration, bool) {
	p := c.ptr.Load()
	if p == nil {
		return 0, false
	}
	return time.Since(p.PublishedAt), true
}

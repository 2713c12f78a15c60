// Package memory provides in-process storage adapters for the
// arbitrage context.
package memory

import (
	"context"
	"sync"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/app"
	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
)

// Ensure HistoryStore implements the port.
var _ app.HistoryStore = (*HistoryStore)(nil)

// HistoryStore keeps the last N evaluated opportunities in a ring
// buffer. Old entries are overwritten silently.
type HistoryStore struct {
	mu    sync.RWMutex
	buf   []*domain.Opportunity
	next  int
	count int
}

// NewHistoryStore creates a HistoryStore holding up to capacity
// entries.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &HistoryStore{
		buf: make([]*domain.Opportunity, capacity),
	}
}

// Record appends an opportunity, evicting the oldest when full.
func (h *HistoryStore) Record(_ context.Context, opp *domain.Opportunity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = opp
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Recent returns up to n most recent opportunities, newest first.
func (h *HistoryStore) Recent(_ context.Context, n int) []*domain.Opportunity {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > h.count {
		n = h.count
	}

	out := make([]*domain.Opportunity, 0, n)
	idx := h.next
	for i := 0; i < n; i++ {
		idx--
		if idx < 0 {
			idx = len(h.buf) - 1
		}
		out = append(out, h.buf[idx])
	}
	return out
}

// Len returns the number of stored opportunities.
func (h *HistoryStore) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

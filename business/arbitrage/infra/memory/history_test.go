package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
)

func TestHistoryStore_RingBuffer(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore(3)

	for i := 1; i <= 5; i++ {
		store.Record(ctx, &domain.Opportunity{ID: fmt.Sprintf("opp-%d", i)})
	}

	if store.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", store.Len())
	}

	recent := store.Recent(ctx, 10)
	if len(recent) != 3 {
		t.Fatalf("Recent() returned %d entries, want 3", len(recent))
	}

	// Newest first; opp-1 and opp-2 were evicted.
	want := []string{"opp-5", "opp-4", "opp-3"}
	for i, w := range want {
		if recent[i].ID != w {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i].ID, w)
		}
	}
}

func TestHistoryStore_RecentOnEmpty(t *testing.T) {
	store := NewHistoryStore(4)
	if got := store.Recent(context.Background(), 2); len(got) != 0 {
		t.Errorf("expected empty result, got %d entries", len(got))
	}
}

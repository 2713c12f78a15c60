package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/config"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

func testNotifier(t *testing.T, baseURL string) *Notifier {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelInfo, "test", nil)
	n, err := newNotifier(config.TelegramConfig{
		BotToken: "test-token",
		ChatID:   "42",
	}, baseURL, log)
	if err != nil {
		t.Fatalf("newNotifier() error = %v", err)
	}
	n.retryDelay = time.Millisecond
	return n
}

func notifierOpportunity() *domain.Opportunity {
	route := routingdomain.NewRoute(asset.USDC, asset.WETH)
	return &domain.Opportunity{
		ID:          "opp-1",
		Route:       route,
		BuyVenue:    "venue-a",
		SellVenue:   "venue-b",
		BorrowToken: asset.USDC,
		TradeSize:   decimal.NewFromInt(10_000),
	}
}

func TestNotifier_ReportRetriesUntilDelivered(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := testNotifier(t, srv.URL)
	n.Report(context.Background(), notifierOpportunity())
	n.wg.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("API calls = %d, want 3", got)
	}
}

func TestNotifier_ReportGivesUpAfterBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := testNotifier(t, srv.URL)
	n.Report(context.Background(), notifierOpportunity())
	n.wg.Wait()

	if got := calls.Load(); got != sendAttempts {
		t.Errorf("API calls = %d, want %d", got, sendAttempts)
	}
}

// Report must hand off to a goroutine: a wedged API cannot stall the
// caller.
func TestNotifier_ReportDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()
	defer close(release)

	n := testNotifier(t, srv.URL)

	done := make(chan struct{})
	go func() {
		n.Report(context.Background(), notifierOpportunity())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Report blocked on slow API")
	}
}

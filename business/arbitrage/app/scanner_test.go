package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	pricingapp "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"
	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingapp "github.com/replitcryptobots-blip/Sonicarbi/business/routing/app"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

// fakeVenue quotes WETH against USDC at a fixed price with no fee and
// no price impact. Everything else is unquotable.
type fakeVenue struct {
	name   string
	ethUSD decimal.Decimal
}

func (f *fakeVenue) Name() string             { return f.name }
func (f *fakeVenue) Concentrated() bool       { return false }
func (f *fakeVenue) FeeInclusive() bool       { return true }
func (f *fakeVenue) FeeRate() decimal.Decimal { return decimal.Zero }

func (f *fakeVenue) Quote(_ context.Context, pair pricingdomain.Pair, amountIn decimal.Decimal) (pricingdomain.HopQuote, error) {
	var amountOut decimal.Decimal
	switch {
	case pair.Base.Symbol() == "USDC" && pair.Quote.Symbol() == "WETH":
		amountOut = amountIn.Div(f.ethUSD)
	case pair.Base.Symbol() == "WETH" && pair.Quote.Symbol() == "USDC":
		amountOut = amountIn.Mul(f.ethUSD)
	default:
		return pricingdomain.HopQuote{}, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithContext(pair.String()))
	}

	return pricingdomain.HopQuote{
		TokenIn:   pair.Base,
		TokenOut:  pair.Quote,
		Venue:     f.name,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Timestamp: time.Now(),
	}, nil
}

type recordingReporter struct {
	mu   sync.Mutex
	opps []*domain.Opportunity
}

func (r *recordingReporter) Start(context.Context) error { return nil }
func (r *recordingReporter) Stop() error                 { return nil }

func (r *recordingReporter) Report(_ context.Context, opp *domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opps = append(r.opps, opp)
}

func (r *recordingReporter) reported() []*domain.Opportunity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Opportunity(nil), r.opps...)
}

type recordingHistory struct {
	mu   sync.Mutex
	opps []*domain.Opportunity
}

func (h *recordingHistory) Record(_ context.Context, opp *domain.Opportunity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opps = append(h.opps, opp)
}

func (h *recordingHistory) Recent(_ context.Context, n int) []*domain.Opportunity {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.opps) {
		n = len(h.opps)
	}
	out := make([]*domain.Opportunity, 0, n)
	for i := len(h.opps) - 1; i >= len(h.opps)-n; i-- {
		out = append(out, h.opps[i])
	}
	return out
}

func (h *recordingHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.opps)
}

// channelExecutor hands dispatched opportunities to the test goroutine.
type channelExecutor struct {
	got chan *domain.Opportunity
}

func (e *channelExecutor) Execute(_ context.Context, opp *domain.Opportunity) error {
	e.got <- opp
	return nil
}

type scannerFixture struct {
	scanner  *Scanner
	reporter *recordingReporter
	history  *recordingHistory
	executor *channelExecutor
}

// testScanner wires fake venues through the real pricer, catalog, and
// evaluator. venue-a quotes WETH at 3500 USDC, venue-b at 3520, so one
// round trip on 10k USDC clears ~57 USD before costs.
func testScanner(t *testing.T, pairs []pricingdomain.Pair, workers int) *scannerFixture {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelInfo, "test", nil)

	venueA := &fakeVenue{name: "venue-a", ethUSD: decimal.NewFromInt(3500)}
	venueB := &fakeVenue{name: "venue-b", ethUSD: decimal.NewFromInt(3520)}

	pricer, err := pricingapp.NewPathPricer([]pricingapp.VenueAdapter{venueA, venueB}, log)
	if err != nil {
		t.Fatalf("NewPathPricer() error = %v", err)
	}

	catalog, err := routingapp.NewCatalog(routingapp.CatalogConfig{
		MaxHops:           2,
		MaxIntermediaries: 4,
	}, nil, log)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	evaluator := testEvaluator(t, EvaluatorConfig{
		MinProfitUSD: decimal.NewFromInt(10),
		MinProfitPct: decimal.RequireFromString("0.001"),
	}, defaultRef())

	reporter := &recordingReporter{}
	history := &recordingHistory{}
	executor := &channelExecutor{got: make(chan *domain.Opportunity, 8)}

	scanner, err := NewScanner(ScannerConfig{
		Pairs:        pairs,
		TradeSizes:   []decimal.Decimal{decimal.NewFromInt(10_000)},
		ScanInterval: time.Hour,
		Workers:      workers,
	}, catalog, pricer, evaluator, reporter, history, executor,
		[]string{"venue-a", "venue-b"}, log)
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}

	return &scannerFixture{
		scanner:  scanner,
		reporter: reporter,
		history:  history,
		executor: executor,
	}
}

func TestScanner_FindsCrossVenueSpread(t *testing.T) {
	pairs := []pricingdomain.Pair{pricingdomain.NewPair(asset.USDC, asset.WETH)}
	f := testScanner(t, pairs, 2)

	f.scanner.scanPass(context.Background())

	// Both directions were evaluated and recorded; only buying cheap
	// on venue-a and selling dear on venue-b clears the gates.
	if got := f.history.count(); got != 2 {
		t.Errorf("history records = %d, want 2", got)
	}

	reported := f.reporter.reported()
	if len(reported) != 1 {
		t.Fatalf("reported opportunities = %d, want 1", len(reported))
	}

	opp := reported[0]
	if opp.BuyVenue != "venue-a" || opp.SellVenue != "venue-b" {
		t.Errorf("venues = buy %s sell %s, want buy venue-a sell venue-b",
			opp.BuyVenue, opp.SellVenue)
	}
	if !opp.IsProfitable() {
		t.Fatal("reported opportunity is not profitable")
	}

	// 10k USDC at 3500, back at 3520: 57.14 gross, negligible costs.
	net := opp.Profit.NetUSD
	if net.LessThan(decimal.NewFromInt(56)) || net.GreaterThan(decimal.NewFromInt(58)) {
		t.Errorf("net profit = %s, want ~57.14", net)
	}

	select {
	case dispatched := <-f.executor.got:
		if dispatched.ID != opp.ID {
			t.Errorf("executor got %s, want %s", dispatched.ID, opp.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("opportunity never dispatched to the executor")
	}
}

func TestScanner_UnquotablePairIsExcluded(t *testing.T) {
	// WBTC has no pool on either fake venue; the pass completes with
	// nothing recorded or reported.
	pairs := []pricingdomain.Pair{pricingdomain.NewPair(asset.USDC, asset.WBTC)}
	f := testScanner(t, pairs, 2)

	f.scanner.scanPass(context.Background())

	if got := f.history.count(); got != 0 {
		t.Errorf("history records = %d, want 0", got)
	}
	if got := len(f.reporter.reported()); got != 0 {
		t.Errorf("reported opportunities = %d, want 0", got)
	}
}

func TestScanner_WorkerPoolScansAllPairs(t *testing.T) {
	// More pairs than workers: the pass must still join every scan
	// before returning.
	pairs := []pricingdomain.Pair{
		pricingdomain.NewPair(asset.USDC, asset.WETH),
		pricingdomain.NewPair(asset.USDC, asset.WBTC),
		pricingdomain.NewPair(asset.USDC, asset.WETH),
	}
	f := testScanner(t, pairs, 1)

	f.scanner.scanPass(context.Background())

	// The WETH pair contributes two evaluations per scan; the WBTC
	// pair none.
	if got := f.history.count(); got != 4 {
		t.Errorf("history records = %d, want 4", got)
	}
	if got := len(f.reporter.reported()); got != 2 {
		t.Errorf("reported opportunities = %d, want 2", got)
	}
}

func TestNewScanner_RejectsSingleVenue(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelInfo, "test", nil)

	_, err := NewScanner(ScannerConfig{}, nil, nil, nil, nil, nil, nil,
		[]string{"venue-a"}, log)
	if err == nil {
		t.Fatal("expected configuration error for a single venue")
	}
	if apperror.GetCode(err) != apperror.CodeConfigurationError {
		t.Errorf("expected %s, got %s", apperror.CodeConfigurationError, apperror.GetCode(err))
	}
}

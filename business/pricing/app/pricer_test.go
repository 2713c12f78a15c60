package app_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"
	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

// fakeVenue quotes every pair from a fixed reserve table.
type fakeVenue struct {
	name         string
	feeInclusive bool
	feeRate      decimal.Decimal
	reserves     map[string][2]decimal.Decimal // pair -> {reserveIn, reserveOut}
}

func (f *fakeVenue) Name() string             { return f.name }
func (f *fakeVenue) Concentrated() bool       { return false }
func (f *fakeVenue) FeeInclusive() bool       { return f.feeInclusive }
func (f *fakeVenue) FeeRate() decimal.Decimal { return f.feeRate }

func (f *fakeVenue) Quote(_ context.Context, pair pricingdomain.Pair, amountIn decimal.Decimal) (pricingdomain.HopQuote, error) {
	r, ok := f.reserves[pair.String()]
	if !ok {
		return pricingdomain.HopQuote{}, apperror.New(apperror.CodePoolNotFound, apperror.WithContext(pair.String()))
	}

	res, err := pricingdomain.SimulateSwap(amountIn, r[0], r[1], f.feeRate)
	if err != nil {
		return pricingdomain.HopQuote{}, err
	}

	return pricingdomain.HopQuote{
		TokenIn:        pair.Base,
		TokenOut:       pair.Quote,
		Venue:          f.name,
		AmountIn:       res.AmountIn,
		AmountOut:      res.AmountOut,
		SpotPrice:      res.SpotPrice,
		EffectivePrice: res.EffectivePrice,
		PriceImpactPct: res.PriceImpactPct,
		FeeRate:        f.feeRate,
		Timestamp:      time.Now(),
	}, nil
}

func newTestVenue() *fakeVenue {
	return &fakeVenue{
		name:         "venue-a",
		feeInclusive: true,
		feeRate:      decimal.RequireFromString("0.003"),
		reserves: map[string][2]decimal.Decimal{
			"WETH-USDT": {decimal.RequireFromString("1000"), decimal.RequireFromString("3500000")},
			"USDT-USDC": {decimal.RequireFromString("5000000"), decimal.RequireFromString("5000000")},
			"WETH-USDC": {decimal.RequireFromString("1000"), decimal.RequireFromString("3500000")},
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelInfo, "test", nil)
}

func TestPathPricer_ChainsHops(t *testing.T) {
	pricer, err := app.NewPathPricer([]app.VenueAdapter{newTestVenue()}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	route := routingdomain.NewRoute(asset.WETH, asset.USDT, asset.USDC)
	quote, err := pricer.PriceRoute(context.Background(), "venue-a", route, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.NumHops() != 2 {
		t.Fatalf("expected 2 hops, got %d", quote.NumHops())
	}

	// The second hop's input is the first hop's output.
	if !quote.Hops[1].AmountIn.Equal(quote.Hops[0].AmountOut) {
		t.Errorf("hop chaining broken: %s vs %s", quote.Hops[1].AmountIn, quote.Hops[0].AmountOut)
	}

	if !quote.AmountOut.Equal(quote.Hops[1].AmountOut) {
		t.Error("path output must equal the final hop output")
	}

	// Two hops at 0.3% compound to 0.5991%.
	if !quote.CompoundedFeeRate.Equal(decimal.RequireFromString("0.005991")) {
		t.Errorf("expected compounded fee 0.005991, got %s", quote.CompoundedFeeRate)
	}

	if quote.MaxPriceImpactPct.IsNegative() || quote.MaxPriceImpactPct.IsZero() {
		t.Errorf("expected positive max impact, got %s", quote.MaxPriceImpactPct)
	}
}

func TestPathPricer_RefusesPreFeeAdapters(t *testing.T) {
	bad := newTestVenue()
	bad.feeInclusive = false

	_, err := app.NewPathPricer([]app.VenueAdapter{bad}, testLogger())
	if err == nil {
		t.Fatal("expected error for pre-fee adapter")
	}
	if apperror.GetCode(err) != apperror.CodeFeeModelMismatch {
		t.Errorf("expected %s, got %s", apperror.CodeFeeModelMismatch, apperror.GetCode(err))
	}
}

func TestPathPricer_MissingPoolExcludesRoute(t *testing.T) {
	pricer, err := app.NewPathPricer([]app.VenueAdapter{newTestVenue()}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// WBTC pools are not in the table; the route yields no quote
	// instead of a zero-valued one.
	route := routingdomain.NewRoute(asset.WETH, asset.WBTC, asset.USDC)
	_, err = pricer.PriceRoute(context.Background(), "venue-a", route, decimal.NewFromInt(10))
	if err == nil {
		t.Fatal("expected error for missing pool")
	}
}

func TestPathPricer_RejectsZeroTradeSize(t *testing.T) {
	pricer, err := app.NewPathPricer([]app.VenueAdapter{newTestVenue()}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	route := routingdomain.NewRoute(asset.WETH, asset.USDC)
	_, err = pricer.PriceRoute(context.Background(), "venue-a", route, decimal.Zero)
	if apperror.GetCode(err) != apperror.CodeInvalidTradeSize {
		t.Errorf("expected %s, got %v", apperror.CodeInvalidTradeSize, err)
	}
}

func TestPathPricer_UnknownVenue(t *testing.T) {
	pricer, err := app.NewPathPricer([]app.VenueAdapter{newTestVenue()}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	route := routingdomain.NewRoute(asset.WETH, asset.USDC)
	_, err = pricer.PriceRoute(context.Background(), "venue-b", route, decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("expected error for unregistered venue")
	}
}

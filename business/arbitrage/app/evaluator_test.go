package app

import (
	"context"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	blockchaindomain "github.com/replitcryptobots-blip/Sonicarbi/business/blockchain/domain"
	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

type fakeGasOracle struct {
	gwei float64
}

func (f *fakeGasOracle) GasPrice(_ context.Context) (*blockchaindomain.GasPrice, error) {
	return blockchaindomain.NewGasPriceFromGwei(f.gwei), nil
}

func (f *fakeGasOracle) EstimateArbitrage(_ context.Context, v2Hops, concentratedHops int) (*blockchaindomain.GasEstimate, error) {
	units := blockchaindomain.ArbitrageGasUnits(v2Hops, concentratedHops)
	return blockchaindomain.NewGasEstimate(units, blockchaindomain.NewGasPriceFromGwei(f.gwei)), nil
}

type fakeRefPricer struct {
	prices map[string]decimal.Decimal
}

func (f *fakeRefPricer) USDPrice(_ context.Context, a *asset.Asset) (decimal.Decimal, error) {
	if p, ok := f.prices[a.Symbol()]; ok {
		return p, nil
	}
	return decimal.Zero, apperror.New(apperror.CodeValuationUnavailable,
		apperror.WithContext(a.Symbol()))
}

func testEvaluator(t *testing.T, cfg EvaluatorConfig, ref *fakeRefPricer) *Evaluator {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelInfo, "test", nil)
	e, err := NewEvaluator(cfg, &fakeGasOracle{gwei: 0.02}, ref, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func pathQuote(tokenIn, tokenOut *asset.Asset, venue string, amountIn, amountOut decimal.Decimal) pricingdomain.PathQuote {
	return pricingdomain.PathQuote{
		Hops: []pricingdomain.HopQuote{{
			TokenIn:   tokenIn,
			TokenOut:  tokenOut,
			Venue:     venue,
			AmountIn:  amountIn,
			AmountOut: amountOut,
			Timestamp: time.Now(),
		}},
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Timestamp: time.Now(),
	}
}

func defaultRef() *fakeRefPricer {
	return &fakeRefPricer{prices: map[string]decimal.Decimal{
		"USDC": decimal.NewFromInt(1),
		"WETH": decimal.NewFromInt(3500),
	}}
}

func TestEvaluator_ProfitableRoundTrip(t *testing.T) {
	cfg := EvaluatorConfig{
		MinProfitUSD:    decimal.NewFromInt(1),
		MinProfitPct:    decimal.RequireFromString("0.001"),
		FinancingFeeBps: 9,
	}
	e := testEvaluator(t, cfg, defaultRef())

	route := routingdomain.NewRoute(asset.USDC, asset.WETH)
	size := decimal.NewFromInt(10_000)

	// Buy 10k USDC worth of WETH, sell it back for 10.1k USDC.
	buy := pathQuote(asset.USDC, asset.WETH, "venue-a", size, decimal.RequireFromString("2.89"))
	sell := pathQuote(asset.WETH, asset.USDC, "venue-b", decimal.RequireFromString("2.89"), decimal.NewFromInt(10_100))

	opp, err := e.Evaluate(context.Background(), route, "venue-a", "venue-b", size, buy, sell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !opp.GrossProfit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("gross profit = %s, want 100", opp.GrossProfit)
	}

	// Financing: 9 bps on 10k = 9 USD. Gas at 0.02 gwei is fractions
	// of a cent. Net is just above 90 USD, well over both gates.
	if !opp.IsProfitable() {
		t.Fatalf("expected profitable, got net %s", opp.Profit.NetUSD)
	}
	if opp.Profit.NetUSD.GreaterThan(decimal.NewFromInt(91)) ||
		opp.Profit.NetUSD.LessThan(decimal.NewFromInt(90)) {
		t.Errorf("net profit = %s, want ~90.97", opp.Profit.NetUSD)
	}
}

func TestEvaluator_DualGate(t *testing.T) {
	ref := defaultRef()
	route := routingdomain.NewRoute(asset.USDC, asset.WETH)

	tests := []struct {
		name       string
		cfg        EvaluatorConfig
		size       decimal.Decimal
		finalOut   decimal.Decimal
		profitable bool
	}{
		{
			// Net ~14 USD on 1M: clears the USD floor but not 0.5%.
			name: "clears usd floor only",
			cfg: EvaluatorConfig{
				MinProfitUSD: decimal.NewFromInt(10),
				MinProfitPct: decimal.RequireFromString("0.005"),
			},
			size:       decimal.NewFromInt(1_000_000),
			finalOut:   decimal.NewFromInt(1_000_015),
			profitable: false,
		},
		{
			// Net ~1 USD on 100: clears 0.5% but not the USD floor.
			name: "clears pct floor only",
			cfg: EvaluatorConfig{
				MinProfitUSD: decimal.NewFromInt(10),
				MinProfitPct: decimal.RequireFromString("0.005"),
			},
			size:       decimal.NewFromInt(100),
			finalOut:   decimal.RequireFromString("101.1"),
			profitable: false,
		},
		{
			name: "clears both",
			cfg: EvaluatorConfig{
				MinProfitUSD: decimal.NewFromInt(10),
				MinProfitPct: decimal.RequireFromString("0.005"),
			},
			size:       decimal.NewFromInt(10_000),
			finalOut:   decimal.NewFromInt(10_100),
			profitable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEvaluator(t, tt.cfg, ref)

			mid := decimal.RequireFromString("2.89")
			buy := pathQuote(asset.USDC, asset.WETH, "venue-a", tt.size, mid)
			sell := pathQuote(asset.WETH, asset.USDC, "venue-b", mid, tt.finalOut)

			opp, err := e.Evaluate(context.Background(), route, "venue-a", "venue-b", tt.size, buy, sell)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opp.IsProfitable() != tt.profitable {
				t.Errorf("IsProfitable() = %v, want %v (net %s)",
					opp.IsProfitable(), tt.profitable, opp.Profit.NetUSD)
			}
		})
	}
}

func TestEvaluator_UnknownValuationExcludes(t *testing.T) {
	cfg := EvaluatorConfig{
		MinProfitUSD: decimal.NewFromInt(1),
		MinProfitPct: decimal.RequireFromString("0.001"),
	}
	// WBTC has no reference price; the round trip must be excluded,
	// never valued at zero.
	e := testEvaluator(t, cfg, defaultRef())

	route := routingdomain.NewRoute(asset.WBTC, asset.WETH)
	size := decimal.NewFromInt(1)

	buy := pathQuote(asset.WBTC, asset.WETH, "venue-a", size, decimal.NewFromInt(18))
	sell := pathQuote(asset.WETH, asset.WBTC, "venue-b", decimal.NewFromInt(18), decimal.RequireFromString("1.05"))

	_, err := e.Evaluate(context.Background(), route, "venue-a", "venue-b", size, buy, sell)
	if err == nil {
		t.Fatal("expected exclusion error")
	}
	if apperror.GetCode(err) != apperror.CodeValuationUnavailable {
		t.Errorf("expected %s, got %s", apperror.CodeValuationUnavailable, apperror.GetCode(err))
	}
}

func TestEvaluator_FinancingFeeScalesWithSize(t *testing.T) {
	cfg := EvaluatorConfig{
		MinProfitUSD:    decimal.NewFromInt(1),
		MinProfitPct:    decimal.RequireFromString("0.0001"),
		FinancingFeeBps: 9,
	}
	e := testEvaluator(t, cfg, defaultRef())

	route := routingdomain.NewRoute(asset.USDC, asset.WETH)
	size := decimal.NewFromInt(1_000_000)

	mid := decimal.NewFromInt(289)
	buy := pathQuote(asset.USDC, asset.WETH, "venue-a", size, mid)
	sell := pathQuote(asset.WETH, asset.USDC, "venue-b", mid, decimal.NewFromInt(1_001_000))

	opp, err := e.Evaluate(context.Background(), route, "venue-a", "venue-b", size, buy, sell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := decimal.NewFromInt(900) // 9 bps on 1M
	if !opp.Costs.FinancingUSD.Equal(want) {
		t.Errorf("financing fee = %s, want %s", opp.Costs.FinancingUSD, want)
	}
}

func TestGasCostUsesHopMix(t *testing.T) {
	oracle := &fakeGasOracle{gwei: 1}

	flat, err := oracle.EstimateArbitrage(context.Background(), 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mixed, err := oracle.EstimateArbitrage(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Swapping one v2 hop for a concentrated hop adds 50k units.
	diff := new(big.Int).Sub(mixed.TotalWei, flat.TotalWei)
	want := new(big.Int).Mul(big.NewInt(50_000), big.NewInt(1_000_000_000))
	if diff.Cmp(want) != 0 {
		t.Errorf("cost difference = %s wei, want %s", diff, want)
	}
}

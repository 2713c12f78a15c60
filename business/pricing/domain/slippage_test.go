package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSimulateSwap_ReferencePool(t *testing.T) {
	// 1000 WETH / 3,500,000 USDC pool, swap 10 WETH at 0.3% fee.
	res, err := SimulateSwap(dec("10"), dec("1000"), dec("3500000"), dec("0.003"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.SpotPrice.Equal(dec("3500")) {
		t.Errorf("spot price: expected 3500, got %s", res.SpotPrice)
	}

	// out = 9.97 * 3500000 / 1009.97
	tolerance := dec("0.01")
	if res.AmountOut.Sub(dec("34550.53")).Abs().GreaterThan(tolerance) {
		t.Errorf("amount out: expected ~34550.53, got %s", res.AmountOut)
	}

	if res.EffectivePrice.Sub(dec("3455.05")).Abs().GreaterThan(tolerance) {
		t.Errorf("effective price: expected ~3455.05, got %s", res.EffectivePrice)
	}

	// impact = (3500 - effective) / 3500 * 100
	if res.PriceImpactPct.Sub(dec("1.284")).Abs().GreaterThan(dec("0.001")) {
		t.Errorf("price impact: expected ~1.284%%, got %s", res.PriceImpactPct)
	}
	if res.PriceImpactPct.IsNegative() {
		t.Error("price impact must never be negative for a positive trade")
	}
}

func TestAmountOut_Errors(t *testing.T) {
	tests := []struct {
		name               string
		in, rin, rout, fee string
		wantErr            error
	}{
		{"zero input", "0", "1000", "3500000", "0.003", ErrNonPositiveInput},
		{"negative input", "-1", "1000", "3500000", "0.003", ErrNonPositiveInput},
		{"empty in reserve", "10", "0", "3500000", "0.003", ErrUndefinedPrice},
		{"empty out reserve", "10", "1000", "0", "0.003", ErrUndefinedPrice},
		{"fee of one", "10", "1000", "3500000", "1", ErrInvalidFeeRate},
		{"negative fee", "10", "1000", "3500000", "-0.01", ErrInvalidFeeRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AmountOut(dec(tt.in), dec(tt.rin), dec(tt.rout), dec(tt.fee))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSpotPrice_UndefinedNotZero(t *testing.T) {
	_, err := SpotPrice(dec("0"), dec("3500000"))
	if !errors.Is(err, ErrUndefinedPrice) {
		t.Errorf("expected ErrUndefinedPrice, got %v", err)
	}
}

func TestCompoundedFeeRate(t *testing.T) {
	tests := []struct {
		name string
		fee  string
		hops int
		want string
	}{
		{"single hop", "0.003", 1, "0.003"},
		{"two hops", "0.003", 2, "0.005991"},
		{"three hops", "0.003", 3, "0.008973027"},
		{"zero fee", "0", 3, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompoundedFeeRate(dec(tt.fee), tt.hops)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	// Compounding is strictly below the additive approximation.
	compounded, _ := CompoundedFeeRate(dec("0.003"), 3)
	additive := dec("0.009")
	if !compounded.LessThan(additive) {
		t.Errorf("compounded fee %s should be below additive %s", compounded, additive)
	}
}

func TestCompoundedFeeRate_Errors(t *testing.T) {
	if _, err := CompoundedFeeRate(dec("0.003"), 0); err == nil {
		t.Error("expected error for zero hops")
	}
	if _, err := CompoundedFeeRate(dec("1"), 2); err == nil {
		t.Error("expected error for fee of one")
	}
}

func TestSwapResult_ImpactClassification(t *testing.T) {
	small, err := SimulateSwap(dec("1"), dec("1000"), dec("3500000"), dec("0.003"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if small.IsHighImpact() {
		t.Errorf("0.1%% pool trade should not be high impact, got %s%%", small.PriceImpactPct)
	}

	large, err := SimulateSwap(dec("100"), dec("1000"), dec("3500000"), dec("0.003"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !large.IsHighImpact() || !large.IsVeryHighImpact() {
		t.Errorf("10%% pool trade should be very high impact, got %s%%", large.PriceImpactPct)
	}
	if !large.LiquidityRatio.Equal(dec("0.1")) {
		t.Errorf("liquidity ratio: expected 0.1, got %s", large.LiquidityRatio)
	}
}

func TestRouteSlippagePct_ComposesMultiplicatively(t *testing.T) {
	buy := []decimal.Decimal{dec("1"), dec("1")}
	sell := []decimal.Decimal{dec("1")}

	// retained = 0.99^3, lost = 1 - 0.970299 = 2.9701%
	got := RouteSlippagePct(buy, sell)
	if !got.Equal(dec("2.9701")) {
		t.Errorf("expected 2.9701, got %s", got)
	}

	additive := dec("3")
	if !got.LessThan(additive) {
		t.Errorf("composed slippage %s should be below additive %s", got, additive)
	}
}

func TestValidateRouteSlippage(t *testing.T) {
	buy := []decimal.Decimal{dec("1"), dec("1")}
	sell := []decimal.Decimal{dec("1")}

	if err := ValidateRouteSlippage(buy, sell, dec("3")); err != nil {
		t.Errorf("2.9701%% should pass a 3%% cap: %v", err)
	}
	if err := ValidateRouteSlippage(buy, sell, dec("2.5")); !errors.Is(err, ErrSlippageTooHigh) {
		t.Errorf("expected ErrSlippageTooHigh, got %v", err)
	}
}

func TestOptimalTradeSize(t *testing.T) {
	got, err := OptimalTradeSize(dec("1000"), dec("0.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("5")) {
		t.Errorf("expected 5, got %s", got)
	}

	if _, err := OptimalTradeSize(dec("0"), dec("0.5")); !errors.Is(err, ErrUndefinedPrice) {
		t.Errorf("expected ErrUndefinedPrice, got %v", err)
	}
	if _, err := OptimalTradeSize(dec("1000"), dec("0")); !errors.Is(err, ErrNonPositiveInput) {
		t.Errorf("expected ErrNonPositiveInput, got %v", err)
	}
}

func TestSimulateSwap_LargeTradeImpact(t *testing.T) {
	// Swapping half the pool moves the price dramatically but the
	// output stays below the out-reserve.
	res, err := SimulateSwap(dec("500"), dec("1000"), dec("3500000"), dec("0.003"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.AmountOut.GreaterThanOrEqual(dec("3500000")) {
		t.Error("output cannot exceed the out-side reserve")
	}
	if res.PriceImpactPct.LessThan(dec("30")) {
		t.Errorf("expected >30%% impact for half-pool trade, got %s", res.PriceImpactPct)
	}
}

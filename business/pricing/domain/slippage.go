package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Swap math errors. An undefined price (empty pool side) is a distinct
// condition from an invalid input; callers exclude the pool rather than
// treating it as a zero price.
var (
	ErrNonPositiveInput = errors.New("pricing: amount in must be positive")
	ErrUndefinedPrice   = errors.New("pricing: price undefined for empty reserves")
	ErrInvalidFeeRate   = errors.New("pricing: fee rate must be in [0, 1)")
	ErrSlippageTooHigh  = errors.New("pricing: composed route slippage exceeds tolerance")
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

func init() {
	// Multi-hop effective prices on thin pools need more headroom than
	// the package default of 16 digits.
	if decimal.DivisionPrecision < 40 {
		decimal.DivisionPrecision = 40
	}
}

// Impact classification thresholds, in percent.
var (
	highImpactPct     = decimal.NewFromInt(1)
	veryHighImpactPct = decimal.NewFromInt(5)
)

// SwapResult describes one constant-product swap.
type SwapResult struct {
	AmountIn       decimal.Decimal
	AmountOut      decimal.Decimal
	SpotPrice      decimal.Decimal
	EffectivePrice decimal.Decimal
	PriceImpactPct decimal.Decimal

	// LiquidityRatio is amountIn relative to the input reserve.
	LiquidityRatio decimal.Decimal
}

// IsHighImpact reports an impact above 1%.
func (r SwapResult) IsHighImpact() bool {
	return r.PriceImpactPct.GreaterThan(highImpactPct)
}

// IsVeryHighImpact reports an impact above 5%.
func (r SwapResult) IsVeryHighImpact() bool {
	return r.PriceImpactPct.GreaterThan(veryHighImpactPct)
}

// AmountOut computes the fee-inclusive output of a constant-product swap:
//
//	out = in*(1-fee) * reserveOut / (reserveIn + in*(1-fee))
func AmountOut(amountIn, reserveIn, reserveOut, feeRate decimal.Decimal) (decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, ErrNonPositiveInput
	}
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return decimal.Zero, ErrUndefinedPrice
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(one) {
		return decimal.Zero, ErrInvalidFeeRate
	}

	inWithFee := amountIn.Mul(one.Sub(feeRate))
	return inWithFee.Mul(reserveOut).Div(reserveIn.Add(inWithFee)), nil
}

// SpotPrice returns the marginal price reserveOut/reserveIn.
func SpotPrice(reserveIn, reserveOut decimal.Decimal) (decimal.Decimal, error) {
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return decimal.Zero, ErrUndefinedPrice
	}
	return reserveOut.Div(reserveIn), nil
}

// EffectivePrice returns the realized price amountOut/amountIn.
func EffectivePrice(amountIn, amountOut decimal.Decimal) (decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, ErrNonPositiveInput
	}
	return amountOut.Div(amountIn), nil
}

// PriceImpactPct returns how far the effective price fell below spot,
// as a percentage of spot.
func PriceImpactPct(spot, effective decimal.Decimal) (decimal.Decimal, error) {
	if !spot.IsPositive() {
		return decimal.Zero, ErrUndefinedPrice
	}
	return spot.Sub(effective).Div(spot).Mul(hundred), nil
}

// SimulateSwap runs one constant-product swap and derives its price
// metrics. The returned amounts are fee-inclusive; nothing downstream
// may subtract the fee again.
func SimulateSwap(amountIn, reserveIn, reserveOut, feeRate decimal.Decimal) (SwapResult, error) {
	out, err := AmountOut(amountIn, reserveIn, reserveOut, feeRate)
	if err != nil {
		return SwapResult{}, err
	}

	spot, err := SpotPrice(reserveIn, reserveOut)
	if err != nil {
		return SwapResult{}, err
	}

	effective, err := EffectivePrice(amountIn, out)
	if err != nil {
		return SwapResult{}, err
	}

	impact, err := PriceImpactPct(spot, effective)
	if err != nil {
		return SwapResult{}, err
	}

	return SwapResult{
		AmountIn:       amountIn,
		AmountOut:      out,
		SpotPrice:      spot,
		EffectivePrice: effective,
		PriceImpactPct: impact,
		LiquidityRatio: amountIn.Div(reserveIn),
	}, nil
}

// CompoundedFeeRate is the total fee fraction lost across hops swaps at
// the same per-swap fee: 1 - (1-fee)^hops. Fees compound
// multiplicatively; summing per-hop fees overstates retention.
func CompoundedFeeRate(feeRate decimal.Decimal, hops int) (decimal.Decimal, error) {
	if hops < 1 {
		return decimal.Zero, ErrNonPositiveInput
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(one) {
		return decimal.Zero, ErrInvalidFeeRate
	}

	retained := one.Sub(feeRate).Pow(decimal.NewFromInt(int64(hops)))
	return one.Sub(retained), nil
}

// RouteSlippagePct composes per-hop impact percentages multiplicatively
// across both legs of a round trip: the surviving fraction of each hop
// is (1 - impact/100), and the route loses whatever the product does
// not retain. Summing per-hop impacts would overstate retention on
// multi-hop routes.
func RouteSlippagePct(buyImpacts, sellImpacts []decimal.Decimal) decimal.Decimal {
	retained := one
	for _, pct := range buyImpacts {
		retained = retained.Mul(one.Sub(pct.Div(hundred)))
	}
	for _, pct := range sellImpacts {
		retained = retained.Mul(one.Sub(pct.Div(hundred)))
	}
	return one.Sub(retained).Mul(hundred)
}

// ValidateRouteSlippage rejects round trips whose composed slippage
// exceeds maxTotalPct.
func ValidateRouteSlippage(buyImpacts, sellImpacts []decimal.Decimal, maxTotalPct decimal.Decimal) error {
	if total := RouteSlippagePct(buyImpacts, sellImpacts); total.GreaterThan(maxTotalPct) {
		return ErrSlippageTooHigh
	}
	return nil
}

// OptimalTradeSize returns the input amount that moves the pool by
// roughly maxImpactPct: reserveIn * maxImpact / 100. Useful for sizing
// probes against pools of unknown depth.
func OptimalTradeSize(reserveIn, maxImpactPct decimal.Decimal) (decimal.Decimal, error) {
	if !reserveIn.IsPositive() {
		return decimal.Zero, ErrUndefinedPrice
	}
	if !maxImpactPct.IsPositive() {
		return decimal.Zero, ErrNonPositiveInput
	}
	return reserveIn.Mul(maxImpactPct).Div(hundred), nil
}

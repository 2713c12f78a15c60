package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
)

// HopQuote is the fee-inclusive result of pricing one swap step.
type HopQuote struct {
	TokenIn        *asset.Asset
	TokenOut       *asset.Asset
	Venue          string
	Concentrated   bool
	AmountIn       decimal.Decimal
	AmountOut      decimal.Decimal
	SpotPrice      decimal.Decimal
	EffectivePrice decimal.Decimal
	PriceImpactPct decimal.Decimal
	FeeRate        decimal.Decimal
	Timestamp      time.Time
}

// PathQuote is the chained result of pricing a full route. AmountOut is
// fee-inclusive: every hop already charged its fee, so no further fee
// deduction is allowed downstream.
type PathQuote struct {
	Hops              []HopQuote
	AmountIn          decimal.Decimal
	AmountOut         decimal.Decimal
	CompoundedFeeRate decimal.Decimal
	MaxPriceImpactPct decimal.Decimal
	Timestamp         time.Time
}

// NumHops returns the number of swap steps priced.
func (q PathQuote) NumHops() int {
	return len(q.Hops)
}

// TokenIn returns the asset entering the path.
func (q PathQuote) TokenIn() *asset.Asset {
	if len(q.Hops) == 0 {
		return nil
	}
	return q.Hops[0].TokenIn
}

// TokenOut returns the asset leaving the path.
func (q PathQuote) TokenOut() *asset.Asset {
	if len(q.Hops) == 0 {
		return nil
	}
	return q.Hops[len(q.Hops)-1].TokenOut
}

// EffectiveRate returns AmountOut/AmountIn for the whole path.
func (q PathQuote) EffectiveRate() decimal.Decimal {
	if !q.AmountIn.IsPositive() {
		return decimal.Zero
	}
	return q.AmountOut.Div(q.AmountIn)
}

// ConcentratedHops counts hops priced against concentrated liquidity.
func (q PathQuote) ConcentratedHops() int {
	n := 0
	for _, h := range q.Hops {
		if h.Concentrated {
			n++
		}
	}
	return n
}

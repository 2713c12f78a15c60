// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
)

// Pair represents a trading pair using typed assets.
type Pair struct {
	Base  *asset.Asset // e.g., WETH
	Quote *asset.Asset // e.g., USDC
}

// NewPair creates a new trading pair.
func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("pricing: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

// String returns the pair symbol (e.g., "WETH-USDC").
func (p Pair) String() string {
	return p.Base.Symbol() + "-" + p.Quote.Symbol()
}

// Invert returns the inverted pair (e.g., WETH-USDC -> USDC-WETH).
func (p Pair) Invert() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

// PoolState is a point-in-time view of one pool's liquidity for a pair,
// reserves expressed in human units (already adjusted for decimals).
type PoolState struct {
	Pair         Pair
	Venue        string
	ReserveBase  decimal.Decimal
	ReserveQuote decimal.Decimal
	FeeRate      decimal.Decimal // per-swap fee fraction, e.g. 0.003
	Timestamp    time.Time
}

// HasLiquidity reports whether both reserves are strictly positive.
func (s PoolState) HasLiquidity() bool {
	return s.ReserveBase.IsPositive() && s.ReserveQuote.IsPositive()
}

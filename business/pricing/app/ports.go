// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
)

// VenueAdapter quotes swaps against one DEX venue.
//
// Quotes MUST be fee-inclusive: AmountOut is what a trader would
// actually receive after the venue's swap fee. Adapters declare this
// through FeeInclusive; the pricer refuses adapters that return raw
// pre-fee amounts.
type VenueAdapter interface {
	// Name identifies the venue (e.g. "sonic-v2").
	Name() string

	// Concentrated reports whether the venue uses concentrated
	// liquidity. Concentrated hops cost more gas.
	Concentrated() bool

	// FeeInclusive reports whether Quote output already includes the
	// venue's swap fee.
	FeeInclusive() bool

	// FeeRate returns the venue's per-swap fee fraction.
	FeeRate() decimal.Decimal

	// Quote prices one swap of amountIn base tokens into quote tokens.
	Quote(ctx context.Context, pair domain.Pair, amountIn decimal.Decimal) (domain.HopQuote, error)
}

// ReferencePricer values an asset in USD using a known reference price.
// Assets without a reference price return an error, never a zero value.
type ReferencePricer interface {
	USDPrice(ctx context.Context, a *asset.Asset) (decimal.Decimal, error)
}

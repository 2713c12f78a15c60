// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/replitcryptobots-blip/Sonicarbi/business/blockchain/domain"
)

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GasPrice retrieves the current gas price. Implementations fall
	// back to a stale or configured value when the chain is
	// unreachable rather than failing the caller.
	GasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateArbitrage returns the full cost estimate for a
	// settlement transaction with the given hop mix.
	EstimateArbitrage(ctx context.Context, v2Hops, concentratedHops int) (*domain.GasEstimate, error)
}

// Package app contains application services and port definitions for the execution context.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	arbitragedomain "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
)

// Settlement wraps the on-chain settlement contract.
type Settlement interface {
	// Simulate dry-runs the round trip through the contract's view
	// function and returns the profit it reports, in the borrow
	// token. slippageBps caps per-swap slippage inside the contract.
	Simulate(ctx context.Context, opp *arbitragedomain.Opportunity, minProfit decimal.Decimal, deadline time.Time, slippageBps int64) (decimal.Decimal, error)

	// BuildArbitrageTx builds and signs the settlement transaction.
	BuildArbitrageTx(ctx context.Context, opp *arbitragedomain.Opportunity, minProfit decimal.Decimal, deadline time.Time, slippageBps int64) (*types.Transaction, error)
}

// Transmitter submits a signed transaction to the network.
type Transmitter interface {
	// Submit broadcasts the transaction and returns its hash.
	Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error)
}

// Confirmer waits for a submitted transaction to be mined.
type Confirmer interface {
	// WaitMined blocks until the transaction is mined or the timeout
	// elapses.
	WaitMined(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error)
}

// RoutePricer re-prices a route at execution time for the slippage
// check.
type RoutePricer interface {
	PriceRoute(ctx context.Context, venueName string, route routingdomain.Route, amountIn decimal.Decimal) (pricingdomain.PathQuote, error)
}

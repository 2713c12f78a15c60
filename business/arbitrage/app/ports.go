// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
)

// Reporter defines the interface for reporting arbitrage opportunities.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report sends an arbitrage opportunity to be displayed/logged.
	Report(ctx context.Context, opp *domain.Opportunity)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// HistoryStore records evaluated opportunities for later inspection.
type HistoryStore interface {
	// Record appends an opportunity to the history.
	Record(ctx context.Context, opp *domain.Opportunity)

	// Recent returns up to n most recent opportunities, newest first.
	Recent(ctx context.Context, n int) []*domain.Opportunity
}

// Executor hands a profitable opportunity to the settlement pipeline.
type Executor interface {
	// Execute attempts to settle the opportunity on-chain. It returns
	// without error when the attempt was accepted; rejection reasons
	// (busy, breaker open, failed safety gates) come back as errors.
	Execute(ctx context.Context, opp *domain.Opportunity) error
}

package infra

import (
	"context"
	"errors"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/app"
	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
)

// Ensure MultiReporter implements Reporter.
var _ app.Reporter = (*MultiReporter)(nil)

// MultiReporter fans opportunities out to several reporters.
type MultiReporter struct {
	reporters []app.Reporter
}

// NewMultiReporter combines reporters into one.
func NewMultiReporter(reporters ...app.Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

// Start starts every reporter, stopping on the first failure.
func (m *MultiReporter) Start(ctx context.Context) error {
	for _, r := range m.reporters {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Report fans out to every reporter.
func (m *MultiReporter) Report(ctx context.Context, opp *domain.Opportunity) {
	for _, r := range m.reporters {
		r.Report(ctx, opp)
	}
}

// Stop stops every reporter and joins the errors.
func (m *MultiReporter) Stop() error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

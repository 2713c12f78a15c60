// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/app"
	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
)

// Ensure ConsoleReporter implements Reporter.
var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Arbitrage Scanner Started")
	fmt.Fprintln(r.out, "=========================")
	return nil
}

// Report outputs an arbitrage opportunity to the console.
func (r *ConsoleReporter) Report(_ context.Context, opp *domain.Opportunity) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY DETECTED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Route:          %s\n", opp.Route.String())
	fmt.Fprintf(r.out, "Buy Venue:      %s\n", opp.BuyVenue)
	fmt.Fprintf(r.out, "Sell Venue:     %s\n", opp.SellVenue)
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "TRADE DETAILS")
	fmt.Fprintf(r.out, "  Size:           %s %s\n", opp.TradeSize.StringFixed(4), opp.BorrowToken.Symbol())
	fmt.Fprintf(r.out, "  Final:          %s %s\n", opp.FinalAmount().StringFixed(4), opp.BorrowToken.Symbol())
	fmt.Fprintf(r.out, "  Max Impact:     %s%% / %s%%\n",
		opp.BuyQuote.MaxPriceImpactPct.StringFixed(3),
		opp.SellQuote.MaxPriceImpactPct.StringFixed(3))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PROFIT")
	if opp.Profit != nil {
		fmt.Fprintf(r.out, "  Gross:          $%s\n", opp.Profit.GrossUSD.StringFixed(2))
		fmt.Fprintf(r.out, "  Gas:            $%s\n", opp.Costs.GasUSD.StringFixed(4))
		fmt.Fprintf(r.out, "  Financing:      $%s\n", opp.Costs.FinancingUSD.StringFixed(4))
		fmt.Fprintf(r.out, "  Net:            $%s (%s%%)\n",
			opp.Profit.NetUSD.StringFixed(2), opp.Profit.NetPct.StringFixed(3))
	}
	fmt.Fprintln(r.out, "================================================================================")
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Scanner Stopped")
	return nil
}

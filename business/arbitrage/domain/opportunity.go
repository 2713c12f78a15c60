// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
)

// CostBreakdown itemizes the USD costs charged against gross profit.
type CostBreakdown struct {
	GasUSD       decimal.Decimal
	FinancingUSD decimal.Decimal
}

// Total returns the sum of all cost items.
func (c CostBreakdown) Total() decimal.Decimal {
	return c.GasUSD.Add(c.FinancingUSD)
}

// ProfitResult contains the evaluated profit for an opportunity.
type ProfitResult struct {
	GrossUSD     decimal.Decimal
	CostsUSD     decimal.Decimal
	NetUSD       decimal.Decimal
	NetPct       decimal.Decimal // net relative to trade value, in percent
	IsProfitable bool
}

// Opportunity is one evaluated round trip: borrow the start token, buy
// through the route on one venue, sell the proceeds back on another.
type Opportunity struct {
	ID        string
	Timestamp time.Time

	Route       routingdomain.Route
	BorrowToken *asset.Asset
	BuyVenue    string
	SellVenue   string
	TradeSize   decimal.Decimal

	BuyQuote  pricingdomain.PathQuote
	SellQuote pricingdomain.PathQuote

	// GrossProfit is denominated in the borrow token.
	GrossProfit decimal.Decimal
	Costs       CostBreakdown
	Profit      *ProfitResult
}

// NewOpportunityID derives a stable identifier for logs and alerts.
func NewOpportunityID(route routingdomain.Route, buyVenue, sellVenue string, at time.Time) string {
	return fmt.Sprintf("%s|%s>%s|%d", route, buyVenue, sellVenue, at.UnixMilli())
}

// FinalAmount returns the borrow-token amount after the full round
// trip.
func (o *Opportunity) FinalAmount() decimal.Decimal {
	return o.SellQuote.AmountOut
}

// IsProfitable reports whether the opportunity cleared both profit
// gates.
func (o *Opportunity) IsProfitable() bool {
	return o.Profit != nil && o.Profit.IsProfitable
}

// TotalHops counts the swaps across both legs.
func (o *Opportunity) TotalHops() int {
	return o.BuyQuote.NumHops() + o.SellQuote.NumHops()
}

// ConcentratedHops counts hops priced on concentrated-liquidity venues
// across both legs.
func (o *Opportunity) ConcentratedHops() int {
	return o.BuyQuote.ConcentratedHops() + o.SellQuote.ConcentratedHops()
}

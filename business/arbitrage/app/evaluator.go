package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	blockchainapp "github.com/replitcryptobots-blip/Sonicarbi/business/blockchain/app"
	pricingapp "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"
	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

// ethReference is the asset gas costs are denominated in.
func ethReference() *asset.Asset {
	return asset.WETH
}

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

// EvaluatorConfig holds the profitability thresholds.
type EvaluatorConfig struct {
	// MinProfitUSD is the absolute net profit floor.
	MinProfitUSD decimal.Decimal

	// MinProfitPct is the relative net profit floor as a fraction of
	// trade value (0.005 means 0.5%).
	MinProfitPct decimal.Decimal

	// FinancingFeeBps is the flash loan premium in basis points.
	FinancingFeeBps int64

	// MaxRouteSlippagePct caps the composed slippage across both legs,
	// in percent. Zero disables the gate.
	MaxRouteSlippagePct decimal.Decimal
}

// evaluatorMetrics holds OTEL metric instruments.
type evaluatorMetrics struct {
	evaluations metric.Int64Counter
	profitable  metric.Int64Counter
	excluded    metric.Int64Counter
}

// Evaluator decides whether a priced round trip clears both profit
// gates after gas and financing costs. Opportunities whose borrow
// token has no USD reference are excluded outright; a guessed
// valuation is worse than a missed trade.
type Evaluator struct {
	cfg       EvaluatorConfig
	gas       blockchainapp.GasOracle
	refPricer pricingapp.ReferencePricer
	log       logger.LoggerInterface

	tracer  trace.Tracer
	metrics *evaluatorMetrics
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg EvaluatorConfig, gas blockchainapp.GasOracle, refPricer pricingapp.ReferencePricer, log logger.LoggerInterface) (*Evaluator, error) {
	e := &Evaluator{
		cfg:       cfg,
		gas:       gas,
		refPricer: refPricer,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *Evaluator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &evaluatorMetrics{}

	e.metrics.evaluations, err = meter.Int64Counter(
		"opportunity_evaluations_total",
		metric.WithDescription("Total opportunity evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return err
	}

	e.metrics.profitable, err = meter.Int64Counter(
		"opportunities_profitable_total",
		metric.WithDescription("Evaluations that cleared both profit gates"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	e.metrics.excluded, err = meter.Int64Counter(
		"opportunities_excluded_total",
		metric.WithDescription("Evaluations excluded for missing valuation"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Evaluate costs out a priced round trip and applies both profit
// gates. The buy quote carries tradeSize of the borrow token through
// the route; the sell quote carries the proceeds back.
func (e *Evaluator) Evaluate(ctx context.Context, route routingdomain.Route, buyVenue, sellVenue string, tradeSize decimal.Decimal, buyQuote, sellQuote pricingdomain.PathQuote) (*domain.Opportunity, error) {
	ctx, span := e.tracer.Start(ctx, "arbitrage.evaluate",
		trace.WithAttributes(
			attribute.String("route", route.String()),
			attribute.String("buy_venue", buyVenue),
			attribute.String("sell_venue", sellVenue),
		),
	)
	defer span.End()

	e.metrics.evaluations.Add(ctx, 1)

	borrowToken := route.Start()
	now := time.Now()

	opp := &domain.Opportunity{
		ID:          domain.NewOpportunityID(route, buyVenue, sellVenue, now),
		Timestamp:   now,
		Route:       route,
		BorrowToken: borrowToken,
		BuyVenue:    buyVenue,
		SellVenue:   sellVenue,
		TradeSize:   tradeSize,
		BuyQuote:    buyQuote,
		SellQuote:   sellQuote,
		GrossProfit: sellQuote.AmountOut.Sub(tradeSize),
	}

	refPrice, err := e.refPricer.USDPrice(ctx, borrowToken)
	if err != nil {
		e.metrics.excluded.Add(ctx, 1)
		span.AddEvent("valuation_unavailable")
		return nil, apperror.Wrap(err, apperror.CodeValuationUnavailable,
			fmt.Sprintf("cannot value %s trade", borrowToken.Symbol()))
	}

	grossUSD := opp.GrossProfit.Mul(refPrice)
	tradeValueUSD := tradeSize.Mul(refPrice)

	v2Hops := opp.TotalHops() - opp.ConcentratedHops()
	estimate, err := e.gas.EstimateArbitrage(ctx, v2Hops, opp.ConcentratedHops())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ethUSD, err := e.refPricer.USDPrice(ctx, ethReference())
	if err != nil {
		e.metrics.excluded.Add(ctx, 1)
		span.AddEvent("gas_valuation_unavailable")
		return nil, apperror.Wrap(err, apperror.CodeValuationUnavailable, "cannot value gas cost")
	}

	financingUSD := tradeValueUSD.
		Mul(decimal.NewFromInt(e.cfg.FinancingFeeBps)).
		Div(decimal.NewFromInt(10_000))

	opp.Costs = domain.CostBreakdown{
		GasUSD:       estimate.CostUSD(ethUSD),
		FinancingUSD: financingUSD,
	}

	netUSD := grossUSD.Sub(opp.Costs.Total())
	netPct := decimal.Zero
	if tradeValueUSD.IsPositive() {
		netPct = netUSD.Div(tradeValueUSD).Mul(decimal.NewFromInt(100))
	}

	// Both gates must clear: a large trade can beat the USD floor on
	// dust-level margin, a tiny trade can beat the percentage floor on
	// dust-level dollars.
	profitable := netUSD.GreaterThanOrEqual(e.cfg.MinProfitUSD) &&
		netUSD.GreaterThanOrEqual(tradeValueUSD.Mul(e.cfg.MinProfitPct))

	if profitable && e.cfg.MaxRouteSlippagePct.IsPositive() {
		err := pricingdomain.ValidateRouteSlippage(
			hopImpacts(buyQuote), hopImpacts(sellQuote), e.cfg.MaxRouteSlippagePct)
		if err != nil {
			profitable = false
			span.AddEvent("slippage_gate_failed")
		}
	}

	opp.Profit = &domain.ProfitResult{
		GrossUSD:     grossUSD,
		CostsUSD:     opp.Costs.Total(),
		NetUSD:       netUSD,
		NetPct:       netPct,
		IsProfitable: profitable,
	}

	if profitable {
		e.metrics.profitable.Add(ctx, 1)
		span.AddEvent("profitable",
			trace.WithAttributes(attribute.String("net_usd", netUSD.StringFixed(2))))
	}

	span.SetAttributes(
		attribute.String("net_usd", netUSD.StringFixed(4)),
		attribute.Bool("profitable", profitable),
	)

	return opp, nil
}

func hopImpacts(q pricingdomain.PathQuote) []decimal.Decimal {
	impacts := make([]decimal.Decimal, 0, len(q.Hops))
	for _, h := range q.Hops {
		impacts = append(impacts, h.PriceImpactPct)
	}
	return impacts
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

const (
	tracerName = "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"
	meterName  = "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"

	// hopTimeout bounds a single venue quote call. A slow hop
	// invalidates the route for this cycle instead of stalling the scan.
	hopTimeout = 5 * time.Second
)

// pricerMetrics holds OTEL metric instruments.
type pricerMetrics struct {
	pathsPriced  metric.Int64Counter
	pathFailures metric.Int64Counter
}

// PathPricer chains per-hop quotes along a route on a single venue and
// derives the path-level metrics the evaluator needs.
type PathPricer struct {
	log    logger.LoggerInterface
	venues map[string]VenueAdapter

	tracer  trace.Tracer
	metrics *pricerMetrics
}

// NewPathPricer validates that every venue produces fee-inclusive
// quotes and builds a PathPricer.
func NewPathPricer(venues []VenueAdapter, log logger.LoggerInterface) (*PathPricer, error) {
	byName := make(map[string]VenueAdapter, len(venues))
	for _, v := range venues {
		if !v.FeeInclusive() {
			return nil, apperror.New(apperror.CodeFeeModelMismatch,
				apperror.WithContext(v.Name()))
		}
		byName[v.Name()] = v
	}

	p := &PathPricer{
		log:    log,
		venues: byName,
		tracer: otel.Tracer(tracerName),
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return p, nil
}

func (p *PathPricer) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &pricerMetrics{}

	p.metrics.pathsPriced, err = meter.Int64Counter(
		"paths_priced_total",
		metric.WithDescription("Total route pricing attempts"),
		metric.WithUnit("{path}"),
	)
	if err != nil {
		return err
	}

	p.metrics.pathFailures, err = meter.Int64Counter(
		"path_pricing_failures_total",
		metric.WithDescription("Route pricing attempts that returned no quote"),
		metric.WithUnit("{path}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Venue returns the adapter registered under name.
func (p *PathPricer) Venue(name string) (VenueAdapter, bool) {
	v, ok := p.venues[name]
	return v, ok
}

// PriceRoute prices amountIn of the route's start token through every
// hop on the named venue. Each hop's output feeds the next hop's input;
// the final AmountOut is fee-inclusive.
func (p *PathPricer) PriceRoute(ctx context.Context, venueName string, route routingdomain.Route, amountIn decimal.Decimal) (pricingdomain.PathQuote, error) {
	ctx, span := p.tracer.Start(ctx, "pricing.price_route",
		trace.WithAttributes(
			attribute.String("venue", venueName),
			attribute.String("route", route.String()),
			attribute.Int("hops", route.NumHops()),
		),
	)
	defer span.End()

	venue, ok := p.venues[venueName]
	if !ok {
		err := apperror.New(apperror.CodeNotFound,
			apperror.WithContext(fmt.Sprintf("venue %s not registered", venueName)))
		span.RecordError(err)
		return pricingdomain.PathQuote{}, err
	}

	if !amountIn.IsPositive() {
		err := apperror.Validation(apperror.CodeInvalidTradeSize, amountIn.String())
		span.RecordError(err)
		return pricingdomain.PathQuote{}, err
	}

	p.metrics.pathsPriced.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", venueName),
	))

	hops := route.Hops()
	hopQuotes := make([]pricingdomain.HopQuote, 0, len(hops))

	amount := amountIn
	maxImpact := decimal.Zero

	for _, hop := range hops {
		pair := pricingdomain.NewPair(hop.In, hop.Out)

		hopCtx, cancel := context.WithTimeout(ctx, hopTimeout)
		hq, err := venue.Quote(hopCtx, pair, amount)
		cancel()
		if err != nil {
			p.metrics.pathFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("venue", venueName),
			))
			span.RecordError(err)
			span.SetStatus(codes.Error, "hop quote failed")
			return pricingdomain.PathQuote{}, apperror.Wrap(err, apperror.CodeQuoteUnavailable,
				fmt.Sprintf("%s on %s", pair, venueName))
		}

		if hq.PriceImpactPct.GreaterThan(maxImpact) {
			maxImpact = hq.PriceImpactPct
		}

		hopQuotes = append(hopQuotes, hq)
		amount = hq.AmountOut
	}

	compounded, err := pricingdomain.CompoundedFeeRate(venue.FeeRate(), len(hops))
	if err != nil {
		span.RecordError(err)
		return pricingdomain.PathQuote{}, apperror.Wrap(err, apperror.CodePriceCalculationFailed, route.String())
	}

	quote := pricingdomain.PathQuote{
		Hops:              hopQuotes,
		AmountIn:          amountIn,
		AmountOut:         amount,
		CompoundedFeeRate: compounded,
		MaxPriceImpactPct: maxImpact,
		Timestamp:         time.Now(),
	}

	span.SetAttributes(
		attribute.String("amount_in", amountIn.String()),
		attribute.String("amount_out", amount.String()),
		attribute.String("max_impact_pct", maxImpact.String()),
	)
	span.SetStatus(codes.Ok, "priced")

	return quote, nil
}

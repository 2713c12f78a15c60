package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pricingapp "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"
	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingapp "github.com/replitcryptobots-blip/Sonicarbi/business/routing/app"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

// ScannerConfig holds the scan loop parameters.
type ScannerConfig struct {
	// Pairs are the borrow/target pairs to scan. The base token is
	// borrowed and must come back with a surplus.
	Pairs []pricingdomain.Pair

	// TradeSizes are the borrow amounts to try, denominated in the
	// borrow token.
	TradeSizes []decimal.Decimal

	// ScanInterval is the pause between full scan passes.
	ScanInterval time.Duration

	// Workers bounds concurrent pair scans within a pass. Zero or
	// negative falls back to defaultScanWorkers.
	Workers int
}

const defaultScanWorkers = 4

// scannerMetrics holds OTEL metric instruments.
type scannerMetrics struct {
	scanPasses   metric.Int64Counter
	scanDuration metric.Float64Histogram
	candidates   metric.Int64Counter
}

// Scanner drives the discovery loop: enumerate routes, price the
// round trip across every ordered venue pair and trade size, evaluate,
// and hand profitable results to the reporter and executor.
type Scanner struct {
	cfg       ScannerConfig
	catalog   *routingapp.Catalog
	pricer    *pricingapp.PathPricer
	evaluator *Evaluator
	reporter  Reporter
	history   HistoryStore
	executor  Executor // nil in observe-only mode
	venues    []string
	log       logger.LoggerInterface

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner creates a Scanner. executor may be nil; discovery then
// runs observe-only.
func NewScanner(
	cfg ScannerConfig,
	catalog *routingapp.Catalog,
	pricer *pricingapp.PathPricer,
	evaluator *Evaluator,
	reporter Reporter,
	history HistoryStore,
	executor Executor,
	venues []string,
	log logger.LoggerInterface,
) (*Scanner, error) {
	if len(venues) < 2 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("need at least two venues to arbitrage between"))
	}

	if cfg.Workers <= 0 {
		cfg.Workers = defaultScanWorkers
	}

	s := &Scanner{
		cfg:       cfg,
		catalog:   catalog,
		pricer:    pricer,
		evaluator: evaluator,
		reporter:  reporter,
		history:   history,
		executor:  executor,
		venues:    venues,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.scanPasses, err = meter.Int64Counter(
		"scan_passes_total",
		metric.WithDescription("Completed scan passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return err
	}

	s.metrics.scanDuration, err = meter.Float64Histogram(
		"scan_pass_duration_ms",
		metric.WithDescription("Scan pass duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.candidates, err = meter.Int64Counter(
		"scan_candidates_total",
		metric.WithDescription("Round trips priced per scan"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Run executes scan passes until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Info(ctx, "scanner starting",
		"pairs", len(s.cfg.Pairs),
		"venues", s.venues,
		"interval", s.cfg.ScanInterval.String(),
	)

	if err := s.reporter.Start(ctx); err != nil {
		return fmt.Errorf("start reporter: %w", err)
	}
	defer func() {
		if err := s.reporter.Stop(); err != nil {
			s.log.Warn(ctx, "reporter stop failed", "error", err.Error())
		}
	}()

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	// First pass immediately, then on the ticker.
	s.scanPass(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "scanner stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			s.scanPass(ctx)
		}
	}
}

func (s *Scanner) scanPass(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "arbitrage.scan_pass")
	defer span.End()

	start := time.Now()

	// Pairs are independent; scan them concurrently under a bounded
	// worker pool and join before the pass is counted done.
	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup

	for _, pair := range s.cfg.Pairs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(p pricingdomain.Pair) {
			defer wg.Done()
			defer func() { <-sem }()
			s.scanPair(ctx, p)
		}(pair)
	}
	wg.Wait()

	elapsed := time.Since(start)
	s.metrics.scanPasses.Add(ctx, 1)
	s.metrics.scanDuration.Record(ctx, float64(elapsed.Milliseconds()))

	span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))
	s.log.Debug(ctx, "scan pass complete", "duration", elapsed.String())
}

func (s *Scanner) scanPair(ctx context.Context, pair pricingdomain.Pair) {
	for _, route := range s.catalog.Routes(ctx, pair.Base, pair.Quote) {
		for _, buyVenue := range s.venues {
			for _, sellVenue := range s.venues {
				if buyVenue == sellVenue {
					continue
				}
				for _, size := range s.cfg.TradeSizes {
					s.tryRoundTrip(ctx, route, buyVenue, sellVenue, size)
				}
			}
		}
	}
}

// tryRoundTrip prices the buy leg through the route on one venue and
// the sell leg straight back on the other, then evaluates the result.
// Pricing failures exclude the candidate quietly; missing pools are
// routine.
func (s *Scanner) tryRoundTrip(ctx context.Context, route routingdomain.Route, buyVenue, sellVenue string, size decimal.Decimal) {
	s.metrics.candidates.Add(ctx, 1)

	buyQuote, err := s.pricer.PriceRoute(ctx, buyVenue, route, size)
	if err != nil {
		s.logExclusion(ctx, route, buyVenue, err)
		return
	}

	sellRoute := routingdomain.NewRoute(route.End(), route.Start())
	sellQuote, err := s.pricer.PriceRoute(ctx, sellVenue, sellRoute, buyQuote.AmountOut)
	if err != nil {
		s.logExclusion(ctx, sellRoute, sellVenue, err)
		return
	}

	opp, err := s.evaluator.Evaluate(ctx, route, buyVenue, sellVenue, size, buyQuote, sellQuote)
	if err != nil {
		s.log.Debug(ctx, "candidate excluded",
			"route", route.String(),
			"error", err.Error(),
		)
		return
	}

	s.history.Record(ctx, opp)

	if !opp.IsProfitable() {
		return
	}

	s.log.Info(ctx, "profitable opportunity",
		"id", opp.ID,
		"route", route.String(),
		"buy_venue", buyVenue,
		"sell_venue", sellVenue,
		"size", size.String(),
		"net_usd", opp.Profit.NetUSD.StringFixed(2),
	)

	s.reporter.Report(ctx, opp)

	if s.executor != nil {
		// Execution waits on simulation and receipt confirmation;
		// dispatch off the scan path. The coordinator serializes to
		// one in-flight attempt and rejects the rest.
		go func() {
			if err := s.executor.Execute(ctx, opp); err != nil {
				s.log.Warn(ctx, "execution rejected",
					"id", opp.ID,
					"error", err.Error(),
				)
			}
		}()
	}
}

func (s *Scanner) logExclusion(ctx context.Context, route routingdomain.Route, venue string, err error) {
	s.log.Debug(ctx, "leg pricing failed",
		"route", route.String(),
		"venue", venue,
		"error", err.Error(),
	)
}

// PairsFromTokens builds the scan pairs: every stable token borrows
// against every non-stable token.
func PairsFromTokens(stables, targets []*asset.Asset) []pricingdomain.Pair {
	pairs := make([]pricingdomain.Pair, 0, len(stables)*len(targets))
	for _, s := range stables {
		for _, t := range targets {
			pairs = append(pairs, pricingdomain.NewPair(s, t))
		}
	}
	return pairs
}

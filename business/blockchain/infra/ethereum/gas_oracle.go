package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/replitcryptobots-blip/Sonicarbi/business/blockchain/app"
	"github.com/replitcryptobots-blip/Sonicarbi/business/blockchain/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/cache"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/circuitbreaker"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/config"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/snapshot"
)

// Ensure GasOracle implements the port.
var _ app.GasOracle = (*GasOracle)(nil)

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	staleFallbacks  metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// GasOracle serves the current gas price with a three-step fallback:
// fresh cache, RPC fetch, stale cache within a bounded age, then the
// configured constant.
type GasOracle struct {
	client *ethclient.Client
	logger logger.LoggerInterface

	cacheTTL        time.Duration
	staleMaxAge     time.Duration
	fallbackGwei    float64
	maxGasPrice     *big.Int
	refreshInterval time.Duration

	priceCache *cache.Cache[string, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]
	published  *snapshot.Cell[*domain.GasPrice]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a gas oracle over an established client.
// maxGasGwei clamps runaway suggestions; zero falls back to 500 gwei.
func NewGasOracle(client *ethclient.Client, cfg config.OracleConfig, maxGasGwei float64, log logger.LoggerInterface) (*GasOracle, error) {
	if maxGasGwei <= 0 {
		maxGasGwei = 500
	}
	maxGas, _ := new(big.Float).Mul(big.NewFloat(maxGasGwei), big.NewFloat(1e9)).Int(nil)

	g := &GasOracle{
		client:          client,
		logger:          log,
		cacheTTL:        cfg.GasCacheTTL,
		staleMaxAge:     cfg.GasStaleMaxAge,
		fallbackGwei:    cfg.GasFallbackGwei,
		maxGasPrice:     maxGas,
		refreshInterval: cfg.RefreshInterval,
		priceCache:      cache.New[string, *domain.GasPrice](5 * time.Minute),
		published:       snapshot.NewCell[*domain.GasPrice](),
		tracer:          otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("gas-oracle")
	g.cb = circuitbreaker.New[*big.Int](cbCfg)

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.staleFallbacks, err = meter.Int64Counter(
		"gas_stale_fallbacks_total",
		metric.WithDescription("Gas price reads served from stale cache or constant fallback"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GasPrice retrieves the current gas price. A fresh published snapshot
// or cache entry is served without touching the RPC; fetch failures
// degrade to a stale cached value within the configured age, then to
// the constant fallback. Callers always get a usable price.
func (g *GasOracle) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	// Lock-free read of the last value the refresh loop published.
	if snap, ok := g.published.Load(); ok && time.Since(snap.PublishedAt) <= g.cacheTTL {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("snapshot_hit")
		return snap.Value, nil
	}

	if price, found := g.priceCache.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.cacheMisses.Add(ctx, 1)

	price, err := g.refresh(ctx)
	if err != nil {
		span.RecordError(err)
		return g.fallbackPrice(ctx, span, err), nil
	}

	span.SetAttributes(attribute.Float64("gwei", price.Gwei))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// refresh fetches the gas price over RPC, clamps it, and publishes the
// result to the snapshot cell and cache.
func (g *GasOracle) refresh(ctx context.Context) (*domain.GasPrice, error) {
	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, err
	}

	if g.maxGasPrice != nil && wei.Cmp(g.maxGasPrice) > 0 {
		g.logger.Warn(ctx, "gas price exceeds max, clamping", "wei", wei.String())
		wei = g.maxGasPrice
	}

	price := domain.NewGasPrice(wei)
	g.priceCache.Set(ctx, "current", price, g.cacheTTL)
	g.published.Publish(price)
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei)

	return price, nil
}

// Run refreshes the published snapshot on the configured interval so
// scan workers always read a recent price. It blocks until ctx is
// cancelled; refresh failures are logged and retried on the next tick.
func (g *GasOracle) Run(ctx context.Context) {
	interval := g.refreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := g.refresh(ctx); err != nil {
				g.logger.Warn(ctx, "background gas price refresh failed", "error", err.Error())
			}
		}
	}
}

// fallbackPrice serves the stale cache entry if it is young enough,
// otherwise the configured constant.
func (g *GasOracle) fallbackPrice(ctx context.Context, span trace.Span, cause error) *domain.GasPrice {
	g.metrics.staleFallbacks.Add(ctx, 1)

	if price, found, stale := g.priceCache.GetStale(ctx, "current", g.staleMaxAge); found {
		span.AddEvent("stale_cache_fallback",
			trace.WithAttributes(attribute.Bool("stale", stale)))
		g.logger.Warn(ctx, "gas price fetch failed, serving stale value",
			"error", cause.Error(),
			"age_limit", g.staleMaxAge.String(),
		)
		return price
	}

	span.AddEvent("constant_fallback")
	g.logger.Warn(ctx, "gas price fetch failed, serving constant fallback",
		"error", cause.Error(),
		"fallback_gwei", g.fallbackGwei,
	)
	return domain.NewGasPriceFromGwei(g.fallbackGwei)
}

// Published returns the cell holding the last fresh gas price. Scan
// workers read it without touching the cache or the RPC path.
func (g *GasOracle) Published() *snapshot.Cell[*domain.GasPrice] {
	return g.published
}

// EstimateArbitrage prices the settlement transaction's gas model at
// the current gas price.
func (g *GasOracle) EstimateArbitrage(ctx context.Context, v2Hops, concentratedHops int) (*domain.GasEstimate, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate_arbitrage",
		trace.WithAttributes(
			attribute.Int("v2_hops", v2Hops),
			attribute.Int("concentrated_hops", concentratedHops),
		),
	)
	defer span.End()

	price, err := g.GasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err, apperror.CodeGasEstimationFailed, "gas price unavailable")
	}

	units := domain.ArbitrageGasUnits(v2Hops, concentratedHops)
	estimate := domain.NewGasEstimate(units, price)

	span.SetAttributes(
		attribute.Int64("gas_limit", int64(estimate.GasLimit)),
		attribute.Float64("total_gwei", estimate.TotalGwei),
	)
	span.SetStatus(codes.Ok, "estimated")

	return estimate, nil
}

// Close releases the oracle's cache. The client is shared and stays
// open.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}

package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pricingapp "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"
	"github.com/replitcryptobots-blip/Sonicarbi/business/pricing/infra/univ2"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/cache"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/circuitbreaker"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/config"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/snapshot"
)

// Ensure ReferenceOracle implements the pricing port.
var _ pricingapp.ReferencePricer = (*ReferenceOracle)(nil)

// referenceOracleMetrics holds OTEL metric instruments.
type referenceOracleMetrics struct {
	priceFetches   metric.Int64Counter
	priceUSD       metric.Float64Gauge
	implausible    metric.Int64Counter
	staleFallbacks metric.Int64Counter
}

// ReferenceOracle derives the ETH/USD reference price from the
// reserves of a deep WETH/USDC pool and values assets against it.
// Stablecoins are pegged at one dollar; assets with no reference
// return an error rather than a zero valuation.
type ReferenceOracle struct {
	client *ethclient.Client
	logger logger.LoggerInterface

	pool    common.Address
	pairABI abi.ABI

	cacheTTL        time.Duration
	staleMaxAge     time.Duration
	fallback        decimal.Decimal
	minPlausible    decimal.Decimal
	maxPlausible    decimal.Decimal
	refreshInterval time.Duration

	priceCache *cache.Cache[string, decimal.Decimal]
	published  *snapshot.Cell[decimal.Decimal]
	cb         *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *referenceOracleMetrics
}

// NewReferenceOracle creates a reference oracle over an established
// client.
func NewReferenceOracle(client *ethclient.Client, cfg config.OracleConfig, log logger.LoggerInterface) (*ReferenceOracle, error) {
	pairABI, err := abi.JSON(strings.NewReader(univ2.PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	o := &ReferenceOracle{
		client:          client,
		logger:          log,
		pool:            cfg.EthUsdPoolHex(),
		pairABI:         pairABI,
		cacheTTL:        cfg.EthUsdCacheTTL,
		staleMaxAge:     cfg.EthUsdStaleMaxAge,
		fallback:        decimal.NewFromFloat(cfg.EthUsdFallback),
		minPlausible:    decimal.NewFromFloat(cfg.EthUsdMinPlausible),
		maxPlausible:    decimal.NewFromFloat(cfg.EthUsdMaxPlausible),
		refreshInterval: cfg.RefreshInterval,
		priceCache:      cache.New[string, decimal.Decimal](10 * time.Minute),
		published:       snapshot.NewCell[decimal.Decimal](),
		tracer:          otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("reference-oracle")
	o.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return o, nil
}

func (o *ReferenceOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &referenceOracleMetrics{}

	o.metrics.priceFetches, err = meter.Int64Counter(
		"eth_usd_fetches_total",
		metric.WithDescription("Total ETH/USD reference fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	o.metrics.priceUSD, err = meter.Float64Gauge(
		"eth_usd_price",
		metric.WithDescription("Current ETH/USD reference price"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return err
	}

	o.metrics.implausible, err = meter.Int64Counter(
		"eth_usd_implausible_total",
		metric.WithDescription("Reference prices rejected as implausible"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return err
	}

	o.metrics.staleFallbacks, err = meter.Int64Counter(
		"eth_usd_stale_fallbacks_total",
		metric.WithDescription("Reference reads served from stale cache or constant fallback"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Published exposes the last good ETH/USD price for other components
// to observe without re-triggering a fetch.
func (o *ReferenceOracle) Published() *snapshot.Cell[decimal.Decimal] {
	return o.published
}

// USDPrice values one unit of the asset in USD. Stablecoins and fiat
// USD are pegged at one; ether and wrapped ether use the pool-derived
// reference. Anything else has no reference price.
func (o *ReferenceOracle) USDPrice(ctx context.Context, a *asset.Asset) (decimal.Decimal, error) {
	switch a.Symbol() {
	case "USD", "USDC", "USDT":
		return decimal.NewFromInt(1), nil
	case "ETH", "WETH":
		return o.EthUSD(ctx)
	default:
		return decimal.Zero, apperror.New(apperror.CodeValuationUnavailable,
			apperror.WithContext(fmt.Sprintf("no USD reference for %s", a.Symbol())))
	}
}

// EthUSD returns the current ETH/USD reference price. A fresh
// published snapshot or cache entry is served without touching the
// pool; fetch failures degrade to a stale cached value within the
// configured age, then to the configured constant.
func (o *ReferenceOracle) EthUSD(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := o.tracer.Start(ctx, "reference.eth_usd")
	defer span.End()

	// Lock-free read of the last value the refresh loop published.
	if snap, ok := o.published.Load(); ok && time.Since(snap.PublishedAt) <= o.cacheTTL {
		span.AddEvent("snapshot_hit")
		return snap.Value, nil
	}

	if price, found := o.priceCache.Get(ctx, "eth_usd"); found {
		span.AddEvent("cache_hit")
		return price, nil
	}

	price, err := o.refresh(ctx)
	if err != nil {
		span.RecordError(err)
		return o.fallbackPrice(ctx, span, err), nil
	}

	priceF, _ := price.Float64()
	span.SetAttributes(attribute.Float64("price", priceF))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// refresh reads the pool, validates plausibility, and publishes the
// price to the snapshot cell and cache.
func (o *ReferenceOracle) refresh(ctx context.Context) (decimal.Decimal, error) {
	o.metrics.priceFetches.Add(ctx, 1)

	price, err := o.fetchPoolPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if price.LessThan(o.minPlausible) || price.GreaterThan(o.maxPlausible) {
		o.metrics.implausible.Add(ctx, 1)
		o.logger.Warn(ctx, "reference price outside plausible band, rejecting",
			"price", price.String(),
			"min", o.minPlausible.String(),
			"max", o.maxPlausible.String(),
		)
		return decimal.Zero, apperror.New(apperror.CodeStaleReferencePrice,
			apperror.WithContext(fmt.Sprintf("pool-derived price %s outside [%s, %s]",
				price.StringFixed(2), o.minPlausible, o.maxPlausible)))
	}

	o.priceCache.Set(ctx, "eth_usd", price, o.cacheTTL)
	o.published.Publish(price)
	priceF, _ := price.Float64()
	o.metrics.priceUSD.Record(ctx, priceF)

	return price, nil
}

// Run refreshes the published snapshot on the configured interval so
// scan workers always read a recent price. It blocks until ctx is
// cancelled; refresh failures are logged and retried on the next tick.
func (o *ReferenceOracle) Run(ctx context.Context) {
	interval := o.refreshInterval
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
			if _, err := o.refresh(ctx); err != nil {
				o.logger.Warn(ctx, "background reference price refresh failed", "error", err.Error())
			}
		}
	}
}

// fallbackPrice serves the stale cache entry if young enough,
// otherwise the configured constant.
func (o *ReferenceOracle) fallbackPrice(ctx context.Context, span trace.Span, cause error) decimal.Decimal {
	o.metrics.staleFallbacks.Add(ctx, 1)

	if price, found, stale := o.priceCache.GetStale(ctx, "eth_usd", o.staleMaxAge); found {
		span.AddEvent("stale_cache_fallback",
			trace.WithAttributes(attribute.Bool("stale", stale)))
		o.logger.Warn(ctx, "reference price unavailable, serving stale value",
			"error", cause.Error(),
			"age_limit", o.staleMaxAge.String(),
		)
		return price
	}

	span.AddEvent("constant_fallback")
	o.logger.Warn(ctx, "reference price unavailable, serving constant fallback",
		"error", cause.Error(),
		"fallback", o.fallback.String(),
	)
	return o.fallback
}

// fetchPoolPrice reads the reference pool's reserves and derives the
// price of the non-stable side in USD.
func (o *ReferenceOracle) fetchPoolPrice(ctx context.Context) (decimal.Decimal, error) {
	reserve0, reserve1, err := o.getReserves(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		return decimal.Zero, apperror.New(apperror.CodeUndefinedPrice,
			apperror.WithContext("reference pool has empty reserves"))
	}

	token0, err := o.token0(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	wethReserve := decimal.NewFromBigInt(reserve0, -18)
	usdcReserve := decimal.NewFromBigInt(reserve1, -6)
	if token0 != asset.AddrWETHScroll {
		wethReserve = decimal.NewFromBigInt(reserve1, -18)
		usdcReserve = decimal.NewFromBigInt(reserve0, -6)
	}

	return usdcReserve.Div(wethReserve), nil
}

func (o *ReferenceOracle) getReserves(ctx context.Context) (*big.Int, *big.Int, error) {
	callData, err := o.pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := o.call(ctx, callData)
	if err != nil {
		return nil, nil, err
	}

	outputs, err := o.pairABI.Unpack("getReserves", result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 3 {
		return nil, nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return outputs[0].(*big.Int), outputs[1].(*big.Int), nil
}

func (o *ReferenceOracle) token0(ctx context.Context) (common.Address, error) {
	callData, err := o.pairABI.Pack("token0")
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := o.call(ctx, callData)
	if err != nil {
		return common.Address{}, err
	}

	outputs, err := o.pairABI.Unpack("token0", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode result: %w", err)
	}

	return outputs[0].(common.Address), nil
}

func (o *ReferenceOracle) call(ctx context.Context, data []byte) ([]byte, error) {
	result, err := o.cb.Execute(func() ([]byte, error) {
		return o.client.CallContract(ctx, ethereum.CallMsg{
			To:   &o.pool,
			Data: data,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("reference pool call failed"))
	}
	return result, nil
}

// Close releases the oracle's cache.
func (o *ReferenceOracle) Close() error {
	o.priceCache.Close()
	return nil
}

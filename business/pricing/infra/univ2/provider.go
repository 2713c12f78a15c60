// Package univ2 implements the VenueAdapter interface for
// constant-product (Uniswap V2 style) DEXes.
package univ2

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

	"github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"
	"github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/cache"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/circuitbreaker"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/config"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

const (
	tracerName = "univ2"
	meterName  = "univ2"

	// Pair addresses never change once deployed; reserves go stale
	// within a block or two.
	pairAddrTTL  = time.Hour
	poolStateTTL = 2 * time.Second
)

// Ensure Provider implements VenueAdapter.
var _ app.VenueAdapter = (*Provider)(nil)

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Provider quotes swaps against one V2-style venue by reading pair
// reserves on-chain and simulating the constant-product curve locally.
type Provider struct {
	client     *ethclient.Client
	name       string
	factory    common.Address
	factoryABI abi.ABI
	pairABI    abi.ABI
	feeRate    decimal.Decimal

	minLiquidityUSD decimal.Decimal
	refPricer       app.ReferencePricer

	registry *asset.Registry
	logger   logger.LoggerInterface
	cb       *circuitbreaker.CircuitBreaker[[]byte]

	pairAddrs *cache.Cache[string, common.Address]
	pools     *cache.Cache[string, domain.PoolState]

	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates a V2 venue adapter. refPricer may be nil; the
// liquidity floor is then skipped for pairs it cannot value.
func NewProvider(client *ethclient.Client, cfg config.VenueConfig, minLiquidityUSD decimal.Decimal, refPricer app.ReferencePricer, log logger.LoggerInterface) (*Provider, error) {
	factoryABI, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	p := &Provider{
		client:          client,
		name:            cfg.Name,
		factory:         cfg.FactoryHex(),
		factoryABI:      factoryABI,
		pairABI:         pairABI,
		feeRate:         cfg.FeeDecimal(),
		minLiquidityUSD: minLiquidityUSD,
		refPricer:       refPricer,
		registry:        asset.DefaultRegistry(),
		logger:          log,
		pairAddrs:       cache.New[string, common.Address](0),
		pools:           cache.New[string, domain.PoolState](time.Minute),
		tracer:          otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig(cfg.Name + "-rpc")
	p.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return p, nil
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &providerMetrics{}

	p.metrics.quotesTotal, err = meter.Int64Counter(
		"univ2_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteLatency, err = meter.Float64Histogram(
		"univ2_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteErrors, err = meter.Int64Counter(
		"univ2_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Name identifies the venue.
func (p *Provider) Name() string { return p.name }

// Concentrated is always false for V2 curves.
func (p *Provider) Concentrated() bool { return false }

// FeeInclusive reports that quotes already deduct the swap fee.
func (p *Provider) FeeInclusive() bool { return true }

// FeeRate returns the venue's per-swap fee fraction.
func (p *Provider) FeeRate() decimal.Decimal { return p.feeRate }

// Quote reads the pair's reserves and simulates a fee-inclusive swap of
// amountIn base tokens.
func (p *Provider) Quote(ctx context.Context, pair domain.Pair, amountIn decimal.Decimal) (domain.HopQuote, error) {
	ctx, span := p.tracer.Start(ctx, "univ2.quote",
		trace.WithAttributes(
			attribute.String("venue", p.name),
			attribute.String("pair", pair.String()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	p.metrics.quotesTotal.Add(ctx, 1)

	state, err := p.PoolState(ctx, pair)
	if err != nil {
		p.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "pool state unavailable")
		return domain.HopQuote{}, err
	}

	if err := p.checkLiquidityFloor(ctx, pair, state); err != nil {
		p.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		return domain.HopQuote{}, err
	}

	result, err := domain.SimulateSwap(amountIn, state.ReserveBase, state.ReserveQuote, p.feeRate)
	if err != nil {
		p.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap simulation failed")
		return domain.HopQuote{}, apperror.New(apperror.CodePriceCalculationFailed,
			apperror.WithCause(err),
			apperror.WithContext(pair.String()))
	}

	latency := float64(time.Since(start).Milliseconds())
	p.metrics.quoteLatency.Record(ctx, latency)

	span.SetAttributes(attribute.String("amount_out", result.AmountOut.String()))
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "v2 quote",
		"venue", p.name,
		"pair", pair.String(),
		"amount_in", amountIn.String(),
		"amount_out", result.AmountOut.String(),
		"impact_pct", result.PriceImpactPct.String(),
	)

	return domain.HopQuote{
		TokenIn:        pair.Base,
		TokenOut:       pair.Quote,
		Venue:          p.name,
		Concentrated:   false,
		AmountIn:       result.AmountIn,
		AmountOut:      result.AmountOut,
		SpotPrice:      result.SpotPrice,
		EffectivePrice: result.EffectivePrice,
		PriceImpactPct: result.PriceImpactPct,
		FeeRate:        p.feeRate,
		Timestamp:      state.Timestamp,
	}, nil
}

// PoolState returns the pair's current reserves in human units,
// oriented base/quote. States are cached briefly so one scan pass does
// not re-read the same pool.
func (p *Provider) PoolState(ctx context.Context, pair domain.Pair) (domain.PoolState, error) {
	key := pair.String()
	if state, ok := p.pools.Get(ctx, key); ok {
		return state, nil
	}

	pairAddr, err := p.pairAddress(ctx, pair)
	if err != nil {
		return domain.PoolState{}, err
	}

	reserves, err := p.getReserves(ctx, pairAddr)
	if err != nil {
		return domain.PoolState{}, err
	}

	token0, err := p.token0(ctx, pairAddr)
	if err != nil {
		return domain.PoolState{}, err
	}

	r0 := decimal.NewFromBigInt(reserves.Reserve0, 0)
	r1 := decimal.NewFromBigInt(reserves.Reserve1, 0)

	var reserveBase, reserveQuote decimal.Decimal
	if token0 == pair.Base.Address() {
		reserveBase = scaleDown(r0, pair.Base.Decimals())
		reserveQuote = scaleDown(r1, pair.Quote.Decimals())
	} else {
		reserveBase = scaleDown(r1, pair.Base.Decimals())
		reserveQuote = scaleDown(r0, pair.Quote.Decimals())
	}

	state := domain.PoolState{
		Pair:         pair,
		Venue:        p.name,
		ReserveBase:  reserveBase,
		ReserveQuote: reserveQuote,
		FeeRate:      p.feeRate,
		Timestamp:    time.Now(),
	}

	p.pools.Set(ctx, key, state, poolStateTTL)
	return state, nil
}

// checkLiquidityFloor rejects pools whose combined reserves are worth
// less than the configured USD floor. Pools the reference pricer cannot
// value pass through unvalued.
func (p *Provider) checkLiquidityFloor(ctx context.Context, pair domain.Pair, state domain.PoolState) error {
	if p.refPricer == nil || !p.minLiquidityUSD.IsPositive() {
		return nil
	}

	var totalUSD decimal.Decimal
	if price, err := p.refPricer.USDPrice(ctx, pair.Quote); err == nil {
		totalUSD = state.ReserveQuote.Mul(price).Mul(decimal.NewFromInt(2))
	} else if price, err := p.refPricer.USDPrice(ctx, pair.Base); err == nil {
		totalUSD = state.ReserveBase.Mul(price).Mul(decimal.NewFromInt(2))
	} else {
		p.logger.Debug(ctx, "liquidity floor skipped, no reference price",
			"venue", p.name, "pair", pair.String())
		return nil
	}

	if totalUSD.LessThan(p.minLiquidityUSD) {
		return apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("%s on %s holds ~%s USD, floor %s",
				pair, p.name, totalUSD.StringFixed(0), p.minLiquidityUSD.StringFixed(0))))
	}

	return nil
}

// pairAddress resolves the pool address through the factory, caching
// the immutable result.
func (p *Provider) pairAddress(ctx context.Context, pair domain.Pair) (common.Address, error) {
	key := pair.String()
	if addr, ok := p.pairAddrs.Get(ctx, key); ok {
		return addr, nil
	}

	callData, err := p.factoryABI.Pack("getPair", pair.Base.Address(), pair.Quote.Address())
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := p.call(ctx, p.factory, callData)
	if err != nil {
		return common.Address{}, err
	}

	outputs, err := p.factoryABI.Unpack("getPair", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode result: %w", err)
	}

	addr := outputs[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("%s has no pool on %s", pair, p.name)))
	}

	p.pairAddrs.Set(ctx, key, addr, pairAddrTTL)
	return addr, nil
}

func (p *Provider) getReserves(ctx context.Context, pairAddr common.Address) (*ReservesResult, error) {
	callData, err := p.pairABI.Pack("getReserves")
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := p.call(ctx, pairAddr, callData)
	if err != nil {
		return nil, err
	}

	outputs, err := p.pairABI.Unpack("getReserves", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 3 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &ReservesResult{
		Reserve0:           outputs[0].(*big.Int),
		Reserve1:           outputs[1].(*big.Int),
		BlockTimestampLast: outputs[2].(uint32),
	}, nil
}

func (p *Provider) token0(ctx context.Context, pairAddr common.Address) (common.Address, error) {
	callData, err := p.pairABI.Pack("token0")
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := p.call(ctx, pairAddr, callData)
	if err != nil {
		return common.Address{}, err
	}

	outputs, err := p.pairABI.Unpack("token0", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode result: %w", err)
	}

	return outputs[0].(common.Address), nil
}

// call executes a read-only contract call through the circuit breaker.
func (p *Provider) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	result, err := p.cb.Execute(func() ([]byte, error) {
		return p.client.CallContract(ctx, ethereum.CallMsg{
			To:   &to,
			Data: data,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("call to %s failed", to.Hex())))
	}
	return result, nil
}

// scaleDown converts a raw token amount to human units.
func scaleDown(raw decimal.Decimal, decimals uint8) decimal.Decimal {
	return raw.Shift(-int32(decimals))
}

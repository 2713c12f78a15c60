// Package croc implements the VenueAdapter interface for
// concentrated-liquidity venues exposing a CrocQuery-style price
// lookup.
package croc

import (
	"bytes"
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
	"github.com/replitcryptobots-blip/Sonicarbi/internal/circuitbreaker"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/config"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

const (
	tracerName = "croc"
	meterName  = "croc"
)

// q64 is 2^64, the Q64.64 fixed-point scale of queryPrice.
var q64 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64), 0)

// Ensure Provider implements VenueAdapter.
var _ app.VenueAdapter = (*Provider)(nil)

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Provider quotes swaps from the venue's instantaneous pool price. The
// venue exposes no reserve depth, so quotes assume the marginal price
// holds for the whole trade, less the swap fee.
type Provider struct {
	client   *ethclient.Client
	name     string
	query    common.Address
	queryABI abi.ABI
	poolIdx  *big.Int
	feeRate  decimal.Decimal

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates a concentrated-liquidity venue adapter.
func NewProvider(client *ethclient.Client, cfg config.VenueConfig, log logger.LoggerInterface) (*Provider, error) {
	queryABI, err := abi.JSON(strings.NewReader(QueryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse query ABI: %w", err)
	}

	poolIdx := cfg.PoolIdx
	if poolIdx == 0 {
		poolIdx = DefaultPoolIdx
	}

	p := &Provider{
		client:   client,
		name:     cfg.Name,
		query:    cfg.QueryAddressHex(),
		queryABI: queryABI,
		poolIdx:  big.NewInt(poolIdx),
		feeRate:  cfg.FeeDecimal(),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
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
		"croc_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteLatency, err = meter.Float64Histogram(
		"croc_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteErrors, err = meter.Int64Counter(
		"croc_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Name identifies the venue.
func (p *Provider) Name() string { return p.name }

// Concentrated is always true for this venue kind.
func (p *Provider) Concentrated() bool { return true }

// FeeInclusive reports that quotes already deduct the swap fee.
func (p *Provider) FeeInclusive() bool { return true }

// FeeRate returns the venue's per-swap fee fraction.
func (p *Provider) FeeRate() decimal.Decimal { return p.feeRate }

// Quote reads the pool's spot price and projects amountIn through it
// minus the swap fee.
func (p *Provider) Quote(ctx context.Context, pair domain.Pair, amountIn decimal.Decimal) (domain.HopQuote, error) {
	ctx, span := p.tracer.Start(ctx, "croc.quote",
		trace.WithAttributes(
			attribute.String("venue", p.name),
			attribute.String("pair", pair.String()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	p.metrics.quotesTotal.Add(ctx, 1)

	if !amountIn.IsPositive() {
		err := apperror.Validation(apperror.CodeInvalidTradeSize, amountIn.String())
		span.RecordError(err)
		return domain.HopQuote{}, err
	}

	spot, err := p.SpotPrice(ctx, pair)
	if err != nil {
		p.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "spot price unavailable")
		return domain.HopQuote{}, err
	}

	effective := spot.Mul(decimal.NewFromInt(1).Sub(p.feeRate))
	amountOut := amountIn.Mul(effective)
	impactPct := spot.Sub(effective).Div(spot).Mul(decimal.NewFromInt(100))

	latency := float64(time.Since(start).Milliseconds())
	p.metrics.quoteLatency.Record(ctx, latency)

	span.SetAttributes(attribute.String("amount_out", amountOut.String()))
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "croc quote",
		"venue", p.name,
		"pair", pair.String(),
		"amount_in", amountIn.String(),
		"amount_out", amountOut.String(),
		"spot", spot.String(),
	)

	return domain.HopQuote{
		TokenIn:        pair.Base,
		TokenOut:       pair.Quote,
		Venue:          p.name,
		Concentrated:   true,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		SpotPrice:      spot,
		EffectivePrice: effective,
		PriceImpactPct: impactPct,
		FeeRate:        p.feeRate,
		Timestamp:      time.Now(),
	}, nil
}

// SpotPrice returns the pool's marginal price in quote tokens per base
// token, in human units.
func (p *Provider) SpotPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	// The query contract keys pools by ascending token address; a
	// queried price is always quote-wei per base-wei under that
	// ordering.
	base, quote := pair.Base, pair.Quote
	inverted := false
	if cmpAddr(base.Address(), quote.Address()) > 0 {
		base, quote = quote, base
		inverted = true
	}

	sqrtPrice, err := p.queryPrice(ctx, base.Address(), quote.Address())
	if err != nil {
		return decimal.Zero, err
	}
	if sqrtPrice.Sign() == 0 {
		return decimal.Zero, apperror.New(apperror.CodeUndefinedPrice,
			apperror.WithContext(fmt.Sprintf("%s on %s is uninitialized", pair, p.name)))
	}

	sqrt := decimal.NewFromBigInt(sqrtPrice, 0).Div(q64)
	weiPrice := sqrt.Mul(sqrt)

	// Rescale from wei-per-wei to human units.
	price := weiPrice.Shift(int32(base.Decimals()) - int32(quote.Decimals()))

	if inverted {
		if price.IsZero() {
			return decimal.Zero, apperror.New(apperror.CodeUndefinedPrice,
				apperror.WithContext(pair.String()))
		}
		price = decimal.NewFromInt(1).Div(price)
	}

	return price, nil
}

func (p *Provider) queryPrice(ctx context.Context, base, quote common.Address) (*big.Int, error) {
	callData, err := p.queryABI.Pack("queryPrice", base, quote, p.poolIdx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := p.cb.Execute(func() ([]byte, error) {
		return p.client.CallContract(ctx, ethereum.CallMsg{
			To:   &p.query,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("queryPrice call failed for pool %s", p.poolIdx)))
	}

	outputs, err := p.queryABI.Unpack("queryPrice", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}

	return outputs[0].(*big.Int), nil
}

// cmpAddr orders two addresses bytewise.
func cmpAddr(a, b common.Address) int {
	return bytes.Compare(a.Bytes(), b.Bytes())
}

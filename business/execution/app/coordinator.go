package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	arbitrageapp "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/app"
	arbitragedomain "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/business/execution/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

const (
	tracerName = "execution"
	meterName  = "execution"
)

// CoordinatorConfig tunes the settlement pipeline's safety gates.
type CoordinatorConfig struct {
	// SimulationDeadline bounds how long the settlement contract may
	// consider the trade valid.
	SimulationDeadline time.Duration

	// MinProfitRatio is the fraction of the discovered profit the
	// simulation must still show; prices move between discovery and
	// settlement.
	MinProfitRatio decimal.Decimal

	// SlippageTolerance is the maximum relative drop in the re-priced
	// buy leg before the trade is abandoned.
	SlippageTolerance decimal.Decimal

	// ReceiptTimeout bounds how long to wait for the transaction to
	// land.
	ReceiptTimeout time.Duration
}

// DefaultCoordinatorConfig returns the standard gates.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		SimulationDeadline: 5 * time.Minute,
		MinProfitRatio:     decimal.RequireFromString("0.8"),
		SlippageTolerance:  decimal.RequireFromString("0.02"),
		ReceiptTimeout:     5 * time.Minute,
	}
}

// Ensure Coordinator satisfies the arbitrage executor port.
var _ arbitrageapp.Executor = (*Coordinator)(nil)

// coordinatorMetrics holds OTEL metric instruments.
type coordinatorMetrics struct {
	attempts  metric.Int64Counter
	confirmed metric.Int64Counter
	rejected  metric.Int64Counter
}

// Coordinator runs the settlement pipeline for one opportunity at a
// time: simulate on-chain, re-check slippage, transmit, await the
// receipt. Repeated settlement failures trip the halt breaker.
type Coordinator struct {
	cfg        CoordinatorConfig
	settlement Settlement
	transmit   Transmitter
	confirm    Confirmer
	pricer     RoutePricer
	breaker    *domain.Breaker
	log        logger.LoggerInterface

	inFlight atomic.Bool

	tracer  trace.Tracer
	metrics *coordinatorMetrics
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(
	cfg CoordinatorConfig,
	settlement Settlement,
	transmit Transmitter,
	confirm Confirmer,
	pricer RoutePricer,
	breaker *domain.Breaker,
	log logger.LoggerInterface,
) (*Coordinator, error) {
	c := &Coordinator{
		cfg:        cfg,
		settlement: settlement,
		transmit:   transmit,
		confirm:    confirm,
		pricer:     pricer,
		breaker:    breaker,
		log:        log,
		tracer:     otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func (c *Coordinator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &coordinatorMetrics{}

	c.metrics.attempts, err = meter.Int64Counter(
		"settlement_attempts_total",
		metric.WithDescription("Settlement attempts started"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	c.metrics.confirmed, err = meter.Int64Counter(
		"settlements_confirmed_total",
		metric.WithDescription("Settlements confirmed on-chain"),
		metric.WithUnit("{settlement}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rejected, err = meter.Int64Counter(
		"settlements_rejected_total",
		metric.WithDescription("Attempts rejected before transmission"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Execute runs the full settlement pipeline for the opportunity.
func (c *Coordinator) Execute(ctx context.Context, opp *arbitragedomain.Opportunity) error {
	ctx, span := c.tracer.Start(ctx, "execution.settle",
		trace.WithAttributes(attribute.String("id", opp.ID)),
	)
	defer span.End()

	if !c.breaker.Allow() {
		c.metrics.rejected.Add(ctx, 1)
		return apperror.New(apperror.CodeCircuitOpen,
			apperror.WithContext("execution halted after repeated settlement failures"))
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		c.metrics.rejected.Add(ctx, 1)
		return apperror.New(apperror.CodeExecutionBusy,
			apperror.WithContext("another settlement is in flight"))
	}
	defer c.inFlight.Store(false)

	c.metrics.attempts.Add(ctx, 1)

	exec := domain.NewExecution(opp)
	err := c.settle(ctx, exec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(exec.Status))
		return err
	}

	span.SetStatus(codes.Ok, "confirmed")
	return nil
}

func (c *Coordinator) settle(ctx context.Context, exec *domain.Execution) error {
	opp := exec.Opportunity
	deadline := time.Now().Add(c.cfg.SimulationDeadline)
	minProfit := opp.GrossProfit.Mul(c.cfg.MinProfitRatio)

	// The contract enforces the same tolerance on-chain; the off-chain
	// recheck below only saves gas on quotes that already moved.
	slippageBps := c.cfg.SlippageTolerance.Mul(decimal.NewFromInt(10_000)).IntPart()

	// Dry-run through the contract before risking gas.
	simProfit, err := c.settlement.Simulate(ctx, opp, minProfit, deadline, slippageBps)
	if err != nil {
		c.metrics.rejected.Add(ctx, 1)
		exec.Fail("simulation failed")
		return err
	}
	if simProfit.LessThan(minProfit) {
		c.metrics.rejected.Add(ctx, 1)
		exec.Fail("simulation below profit floor")
		return apperror.New(apperror.CodeSimulationUnprofitable,
			apperror.WithContext(fmt.Sprintf("simulated %s, floor %s",
				simProfit, minProfit)))
	}
	exec.SimulatedProfit = simProfit
	if err := exec.Transition(domain.StatusSimulated); err != nil {
		return err
	}

	// Re-price the buy leg; the quote may have moved since discovery.
	if err := c.checkSlippage(ctx, opp); err != nil {
		c.metrics.rejected.Add(ctx, 1)
		exec.Fail("slippage check failed")
		return err
	}
	if err := exec.Transition(domain.StatusSlippageChecked); err != nil {
		return err
	}

	tx, err := c.settlement.BuildArbitrageTx(ctx, opp, minProfit, deadline, slippageBps)
	if err != nil {
		exec.Fail("transaction build failed")
		return err
	}

	hash, err := c.transmit.Submit(ctx, tx)
	if err != nil {
		c.breaker.RecordFailure()
		exec.Fail("transmission failed")
		return err
	}
	exec.TxHash = hash
	if err := exec.Transition(domain.StatusSubmitted); err != nil {
		return err
	}

	c.log.Info(ctx, "settlement submitted",
		"id", opp.ID,
		"hash", hash.Hex(),
		"simulated_profit", simProfit.String(),
	)

	receipt, err := c.confirm.WaitMined(ctx, hash, c.cfg.ReceiptTimeout)
	if err != nil {
		c.breaker.RecordFailure()
		exec.Fail("receipt wait failed")
		return err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		c.breaker.RecordFailure()
		if terr := exec.Transition(domain.StatusReverted); terr != nil {
			return terr
		}
		c.log.Warn(ctx, "settlement reverted",
			"id", opp.ID,
			"hash", hash.Hex(),
			"gas_used", receipt.GasUsed,
		)
		return apperror.New(apperror.CodeSettlementReverted,
			apperror.WithContext(hash.Hex()))
	}

	exec.GasUsed = receipt.GasUsed
	if err := exec.Transition(domain.StatusConfirmed); err != nil {
		return err
	}
	c.breaker.RecordSuccess()

	c.metrics.confirmed.Add(ctx, 1)
	c.log.Info(ctx, "settlement confirmed",
		"id", opp.ID,
		"hash", hash.Hex(),
		"gas_used", receipt.GasUsed,
		"duration", exec.Duration().String(),
	)

	return nil
}

// checkSlippage re-prices the buy leg and rejects the trade when its
// output fell more than the tolerance below the discovered quote.
func (c *Coordinator) checkSlippage(ctx context.Context, opp *arbitragedomain.Opportunity) error {
	fresh, err := c.pricer.PriceRoute(ctx, opp.BuyVenue, opp.Route, opp.TradeSize)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeSlippageExceeded, "cannot re-price buy leg")
	}

	floor := opp.BuyQuote.AmountOut.Mul(decimal.NewFromInt(1).Sub(c.cfg.SlippageTolerance))
	if fresh.AmountOut.LessThan(floor) {
		return apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithContext(fmt.Sprintf("buy leg now yields %s, quoted %s",
				fresh.AmountOut, opp.BuyQuote.AmountOut)))
	}

	return nil
}

package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	arbitragedomain "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/business/execution/domain"
	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

type fakeSettlement struct {
	simProfit       decimal.Decimal
	simErr          error
	buildErr        error
	lastSlippageBps int64
}

func (f *fakeSettlement) Simulate(_ context.Context, _ *arbitragedomain.Opportunity, _ decimal.Decimal, _ time.Time, slippageBps int64) (decimal.Decimal, error) {
	f.lastSlippageBps = slippageBps
	return f.simProfit, f.simErr
}

func (f *fakeSettlement) BuildArbitrageTx(_ context.Context, _ *arbitragedomain.Opportunity, _ decimal.Decimal, _ time.Time, slippageBps int64) (*types.Transaction, error) {
	f.lastSlippageBps = slippageBps
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	return types.NewTx(&types.LegacyTx{To: &to, Gas: 331_000}), nil
}

type fakeTransmitter struct {
	hash common.Hash
	err  error
}

func (f *fakeTransmitter) Submit(_ context.Context, tx *types.Transaction) (common.Hash, error) {
	if f.err != nil {
		return common.Hash{}, f.err
	}
	if f.hash == (common.Hash{}) {
		return tx.Hash(), nil
	}
	return f.hash, nil
}

type fakeConfirmer struct {
	status uint64
	err    error
}

func (f *fakeConfirmer) WaitMined(_ context.Context, _ common.Hash, _ time.Duration) (*types.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Receipt{Status: f.status, GasUsed: 300_000}, nil
}

type fakePricer struct {
	amountOut decimal.Decimal
	err       error
}

func (f *fakePricer) PriceRoute(_ context.Context, _ string, _ routingdomain.Route, _ decimal.Decimal) (pricingdomain.PathQuote, error) {
	if f.err != nil {
		return pricingdomain.PathQuote{}, f.err
	}
	return pricingdomain.PathQuote{AmountOut: f.amountOut}, nil
}

func testOpportunity() *arbitragedomain.Opportunity {
	route := routingdomain.NewRoute(asset.USDC, asset.WETH)
	return &arbitragedomain.Opportunity{
		ID:          "test-opp",
		Route:       route,
		BorrowToken: asset.USDC,
		BuyVenue:    "venue-a",
		SellVenue:   "venue-b",
		TradeSize:   decimal.NewFromInt(10_000),
		BuyQuote:    pricingdomain.PathQuote{AmountOut: decimal.RequireFromString("2.89")},
		SellQuote:   pricingdomain.PathQuote{AmountOut: decimal.NewFromInt(10_100)},
		GrossProfit: decimal.NewFromInt(100),
	}
}

type fixture struct {
	settlement *fakeSettlement
	transmit   *fakeTransmitter
	confirm    *fakeConfirmer
	pricer     *fakePricer
	breaker    *domain.Breaker
}

func defaultFixture() *fixture {
	return &fixture{
		settlement: &fakeSettlement{simProfit: decimal.NewFromInt(95)},
		transmit:   &fakeTransmitter{},
		confirm:    &fakeConfirmer{status: types.ReceiptStatusSuccessful},
		pricer:     &fakePricer{amountOut: decimal.RequireFromString("2.89")},
		breaker:    domain.NewBreaker(domain.DefaultBreakerConfig()),
	}
}

func newTestCoordinator(t *testing.T, f *fixture) *Coordinator {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelInfo, "test", nil)
	c, err := NewCoordinator(DefaultCoordinatorConfig(),
		f.settlement, f.transmit, f.confirm, f.pricer, f.breaker, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestCoordinator_HappyPath(t *testing.T) {
	f := defaultFixture()
	c := newTestCoordinator(t, f)

	if err := c.Execute(context.Background(), testOpportunity()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.breaker.FailureCount() != 0 {
		t.Errorf("breaker failures = %d, want 0", f.breaker.FailureCount())
	}
}

func TestCoordinator_PassesSlippageBpsToContract(t *testing.T) {
	f := defaultFixture()
	c := newTestCoordinator(t, f)

	if err := c.Execute(context.Background(), testOpportunity()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Default tolerance 0.02 becomes 200 bps on the contract call.
	if f.settlement.lastSlippageBps != 200 {
		t.Errorf("slippageBps = %d, want 200", f.settlement.lastSlippageBps)
	}
}

func TestCoordinator_SimulationBelowFloor(t *testing.T) {
	f := defaultFixture()
	// Discovered profit 100; floor is 80. Simulation shows 60.
	f.settlement.simProfit = decimal.NewFromInt(60)
	c := newTestCoordinator(t, f)

	err := c.Execute(context.Background(), testOpportunity())
	if apperror.GetCode(err) != apperror.CodeSimulationUnprofitable {
		t.Errorf("expected %s, got %v", apperror.CodeSimulationUnprofitable, err)
	}
	// Pre-transmission rejections are not settlement failures.
	if f.breaker.FailureCount() != 0 {
		t.Errorf("breaker failures = %d, want 0", f.breaker.FailureCount())
	}
}

func TestCoordinator_SlippageExceeded(t *testing.T) {
	f := defaultFixture()
	// Quoted 2.89 WETH out; fresh pricing shows a 5% drop against a
	// 2% tolerance.
	f.pricer.amountOut = decimal.RequireFromString("2.74")
	c := newTestCoordinator(t, f)

	err := c.Execute(context.Background(), testOpportunity())
	if apperror.GetCode(err) != apperror.CodeSlippageExceeded {
		t.Errorf("expected %s, got %v", apperror.CodeSlippageExceeded, err)
	}
}

func TestCoordinator_RevertTripsBreaker(t *testing.T) {
	f := defaultFixture()
	f.confirm.status = types.ReceiptStatusFailed
	c := newTestCoordinator(t, f)

	for i := 0; i < 5; i++ {
		err := c.Execute(context.Background(), testOpportunity())
		if apperror.GetCode(err) != apperror.CodeSettlementReverted {
			t.Fatalf("attempt %d: expected %s, got %v",
				i+1, apperror.CodeSettlementReverted, err)
		}
	}

	// The fifth revert trips the halt.
	err := c.Execute(context.Background(), testOpportunity())
	if apperror.GetCode(err) != apperror.CodeCircuitOpen {
		t.Errorf("expected %s, got %v", apperror.CodeCircuitOpen, err)
	}
}

func TestCoordinator_SuccessClearsBreaker(t *testing.T) {
	f := defaultFixture()
	f.transmit.err = errors.New("rpc down")
	c := newTestCoordinator(t, f)

	for i := 0; i < 4; i++ {
		if err := c.Execute(context.Background(), testOpportunity()); err == nil {
			t.Fatal("expected transmission error")
		}
	}
	if f.breaker.FailureCount() != 4 {
		t.Fatalf("breaker failures = %d, want 4", f.breaker.FailureCount())
	}

	f.transmit.err = nil
	if err := c.Execute(context.Background(), testOpportunity()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.breaker.FailureCount() != 0 {
		t.Errorf("breaker failures = %d after success, want 0", f.breaker.FailureCount())
	}
}

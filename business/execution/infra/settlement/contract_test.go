package settlement

import (
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	arbitragedomain "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	pricingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/domain"
	routingdomain "github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

// Well-known throwaway test key.
const testKeyHex = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func testContract(t *testing.T) *Contract {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelInfo, "test", nil)
	routers := map[string]common.Address{
		"venue-a": common.HexToAddress("0x1111111111111111111111111111111111111111"),
		"venue-b": common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}
	c, err := NewContract(nil,
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
		testKeyHex, 534352, routers, nil, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func packTestOpportunity() *arbitragedomain.Opportunity {
	return &arbitragedomain.Opportunity{
		ID:          "pack-test",
		Route:       routingdomain.NewRoute(asset.USDC, asset.WETH),
		BorrowToken: asset.USDC,
		BuyVenue:    "venue-a",
		SellVenue:   "venue-b",
		TradeSize:   decimal.NewFromInt(10_000),
		BuyQuote:    pricingdomain.PathQuote{AmountOut: decimal.RequireFromString("2.89")},
		GrossProfit: decimal.NewFromInt(100),
	}
}

func TestContract_PackCallCarriesAllParams(t *testing.T) {
	c := testContract(t)
	opp := packTestOpportunity()
	deadline := time.Unix(1_900_000_000, 0)

	callData, err := c.packCall("executeArbitrage", opp, decimal.NewFromInt(80), deadline, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	method := c.abi.Methods["executeArbitrage"]
	args, err := method.Inputs.Unpack(callData[4:])
	if err != nil {
		t.Fatalf("cannot decode packed call: %v", err)
	}
	if len(args) != 7 {
		t.Fatalf("packed %d args, want 7 (path, routers, amount, minProfit, deadline, slippageBps)", len(args))
	}

	path := args[0].([]common.Address)
	if len(path) != 2 || path[0] != asset.USDC.Address() || path[1] != asset.WETH.Address() {
		t.Errorf("unexpected path: %v", path)
	}

	// 10,000 USDC at 6 decimals.
	amountIn := args[3].(*big.Int)
	if amountIn.Cmp(big.NewInt(10_000_000_000)) != 0 {
		t.Errorf("amountIn = %s, want 10000000000", amountIn)
	}

	deadlineArg := args[5].(*big.Int)
	if deadlineArg.Int64() != deadline.Unix() {
		t.Errorf("deadline = %s, want %d", deadlineArg, deadline.Unix())
	}

	slippage := args[6].(*big.Int)
	if slippage.Int64() != 200 {
		t.Errorf("slippageBps = %s, want 200", slippage)
	}
}

func TestContract_PackCallUnknownVenue(t *testing.T) {
	c := testContract(t)
	opp := packTestOpportunity()
	opp.SellVenue = "venue-c"

	if _, err := c.packCall("executeArbitrage", opp, decimal.NewFromInt(80), time.Now(), 200); err == nil {
		t.Error("expected error for unmapped venue router")
	}
}

package asset_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	// 1 WETH = 1e18 wei
	oneWETH := asset.NewAmount(asset.WETH, big.NewInt(1e18))

	if oneWETH.IsZero() {
		t.Error("expected non-zero amount")
	}

	d := oneWETH.ToDecimal()
	if !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", d.String())
	}

	if oneWETH.String() != "1 WETH" {
		t.Errorf("expected '1 WETH', got '%s'", oneWETH.String())
	}
}

func TestAmount_Add(t *testing.T) {
	one := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	two := asset.NewAmount(asset.WETH, big.NewInt(2e18))

	sum, err := one.Add(two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := decimal.NewFromInt(3)
	if !sum.ToDecimal().Equal(expected) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}
}

func TestAmount_CannotAddDifferentAssets(t *testing.T) {
	oneWETH := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	oneUSDC := asset.NewAmount(asset.USDC, big.NewInt(1e6))

	_, err := oneWETH.Add(oneUSDC)
	if err == nil {
		t.Error("expected error when adding different assets")
	}
}

func TestAmount_SubNegativeError(t *testing.T) {
	one := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	two := asset.NewAmount(asset.WETH, big.NewInt(2e18))

	_, err := one.Sub(two)
	if err == nil {
		t.Error("expected error for negative result")
	}
}

func TestAmount_MulBps(t *testing.T) {
	// 9 bps on 1,000,000 USDC raw units = 900
	amount := asset.NewAmount(asset.USDC, big.NewInt(1_000_000))
	fee := amount.MulBps(9)

	if fee.Raw().Cmp(big.NewInt(900)) != 0 {
		t.Errorf("expected 900, got %s", fee.Raw().String())
	}
}

func TestParseDecimal(t *testing.T) {
	d := decimal.NewFromFloat(1.5)
	amount, err := asset.ParseDecimal(asset.WETH, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := big.NewInt(0)
	expected.SetString("1500000000000000000", 10)

	if amount.Raw().Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected.String(), amount.Raw().String())
	}
}

func TestParseDecimal_TooManyDecimals(t *testing.T) {
	// USDC has 6 decimals, try to parse 1.1234567 (7 decimals)
	d := decimal.NewFromFloat(1.1234567)
	_, err := asset.ParseDecimal(asset.USDC, d)
	if err == nil {
		t.Error("expected error for too many decimals")
	}
}

func TestPrice_Convert(t *testing.T) {
	// WETH/USDC price = 3500
	price := asset.NewPriceNow(asset.WETH, asset.USDC, decimal.NewFromInt(3500))

	oneWETH := asset.NewAmount(asset.WETH, big.NewInt(1e18))

	usdc, err := price.Convert(oneWETH)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := decimal.NewFromInt(3500)
	if !usdc.ToDecimal().Equal(expected) {
		t.Errorf("expected %s USDC, got %s", expected.String(), usdc.ToDecimal().String())
	}
}

func TestRegistry(t *testing.T) {
	r := asset.DefaultRegistry()

	weth, ok := r.GetBySymbolAndChain("WETH", asset.ChainIDScroll)
	if !ok {
		t.Fatal("WETH not found in registry")
	}
	if weth.Decimals() != 18 {
		t.Errorf("expected 18 decimals, got %d", weth.Decimals())
	}

	usdc, ok := r.GetToken(asset.ChainIDScroll, asset.AddrUSDCScroll)
	if !ok {
		t.Fatal("USDC not found in registry")
	}
	if usdc.Symbol() != "USDC" {
		t.Errorf("expected USDC, got %s", usdc.Symbol())
	}
}

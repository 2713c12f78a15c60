package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestArbitrageGasUnits(t *testing.T) {
	tests := []struct {
		name             string
		v2Hops           int
		concentratedHops int
		want             uint64
	}{
		{"two v2 hops", 2, 0, 21_000 + 50_000 + 2*130_000},
		{"v2 buy, concentrated sell", 2, 1, 21_000 + 50_000 + 2*130_000 + 180_000},
		{"no hops still pays overhead", 0, 0, 71_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArbitrageGasUnits(tt.v2Hops, tt.concentratedHops); got != tt.want {
				t.Errorf("ArbitrageGasUnits(%d, %d) = %d, want %d",
					tt.v2Hops, tt.concentratedHops, got, tt.want)
			}
		})
	}
}

func TestGasEstimate_CostUSD(t *testing.T) {
	// 0.02 gwei on Scroll, 331k gas.
	price := NewGasPriceFromGwei(0.02)
	estimate := NewGasEstimate(331_000, price)

	costETH := estimate.CostETH()
	wantETH := decimal.RequireFromString("0.00000662")
	if !costETH.Equal(wantETH) {
		t.Errorf("CostETH() = %s, want %s", costETH, wantETH)
	}

	costUSD := estimate.CostUSD(decimal.NewFromInt(3500))
	wantUSD := decimal.RequireFromString("0.02317")
	if !costUSD.Equal(wantUSD) {
		t.Errorf("CostUSD() = %s, want %s", costUSD, wantUSD)
	}
}

func TestNewGasPrice(t *testing.T) {
	wei := big.NewInt(20_000_000) // 0.02 gwei
	price := NewGasPrice(wei)

	if price.Gwei != 0.02 {
		t.Errorf("Gwei = %f, want 0.02", price.Gwei)
	}
	if price.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Gas unit costs of the settlement transaction, by component. Hop
// costs differ by venue kind: concentrated-liquidity swaps cross ticks
// and touch more storage than a constant-product pair swap.
const (
	GasBase               uint64 = 21_000
	GasFlashLoan          uint64 = 50_000
	GasPerV2Hop           uint64 = 130_000
	GasPerConcentratedHop uint64 = 180_000
)

// ArbitrageGasUnits returns the gas limit model for a settlement
// transaction with the given hop mix.
func ArbitrageGasUnits(v2Hops, concentratedHops int) uint64 {
	return GasBase +
		GasFlashLoan +
		uint64(v2Hops)*GasPerV2Hop +
		uint64(concentratedHops)*GasPerConcentratedHop
}

// GasPrice represents gas price information.
type GasPrice struct {
	Wei       *big.Int
	Gwei      float64
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	gwei := new(big.Float).SetInt(wei)
	gwei.Quo(gwei, big.NewFloat(1e9))
	gweiFloat, _ := gwei.Float64()

	return &GasPrice{
		Wei:       wei,
		Gwei:      gweiFloat,
		Timestamp: time.Now(),
	}
}

// NewGasPriceFromGwei creates a GasPrice from a gwei figure.
func NewGasPriceFromGwei(gwei float64) *GasPrice {
	wei, _ := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9)).Int(nil)
	return &GasPrice{
		Wei:       wei,
		Gwei:      gwei,
		Timestamp: time.Now(),
	}
}

// GasEstimate represents estimated gas costs for an operation.
type GasEstimate struct {
	GasLimit  uint64
	GasPrice  *GasPrice
	TotalWei  *big.Int
	TotalGwei float64
}

// NewGasEstimate computes the total gas cost for a gas limit.
func NewGasEstimate(gasLimit uint64, gasPrice *GasPrice) *GasEstimate {
	totalWei := new(big.Int).Mul(gasPrice.Wei, new(big.Int).SetUint64(gasLimit))
	totalGwei := gasPrice.Gwei * float64(gasLimit)

	return &GasEstimate{
		GasLimit:  gasLimit,
		GasPrice:  gasPrice,
		TotalWei:  totalWei,
		TotalGwei: totalGwei,
	}
}

// CostETH returns the total cost in ether.
func (e *GasEstimate) CostETH() decimal.Decimal {
	return decimal.NewFromBigInt(e.TotalWei, -18)
}

// CostUSD converts the total cost to USD at the given ETH price.
func (e *GasEstimate) CostUSD(ethUsd decimal.Decimal) decimal.Decimal {
	return e.CostETH().Mul(ethUsd)
}

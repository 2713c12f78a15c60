// Package settlement wraps the on-chain flash loan settlement
// contract.
package settlement

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	arbitragedomain "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	blockchaindomain "github.com/replitcryptobots-blip/Sonicarbi/business/blockchain/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/business/execution/app"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/circuitbreaker"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

// ContractABI covers the two entry points the coordinator uses:
// a view-mode dry run and the settlement call itself.
const ContractABI = `[
	{
		"inputs": [
			{"internalType": "address[]", "name": "path", "type": "address[]"},
			{"internalType": "address", "name": "buyRouter", "type": "address"},
			{"internalType": "address", "name": "sellRouter", "type": "address"},
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "minProfit", "type": "uint256"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"},
			{"internalType": "uint256", "name": "slippageBps", "type": "uint256"}
		],
		"name": "simulateArbitrage",
		"outputs": [
			{"internalType": "uint256", "name": "profit", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address[]", "name": "path", "type": "address[]"},
			{"internalType": "address", "name": "buyRouter", "type": "address"},
			{"internalType": "address", "name": "sellRouter", "type": "address"},
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "minProfit", "type": "uint256"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"},
			{"internalType": "uint256", "name": "slippageBps", "type": "uint256"}
		],
		"name": "executeArbitrage",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// receiptPollInterval is how often WaitMined polls for the receipt.
const receiptPollInterval = 3 * time.Second

// Ensure Contract implements the ports.
var (
	_ app.Settlement = (*Contract)(nil)
	_ app.Confirmer  = (*Contract)(nil)
)

// Contract signs and dry-runs settlement transactions against the
// deployed flash loan contract.
type Contract struct {
	client  *ethclient.Client
	address common.Address
	abi     abi.ABI
	key     *ecdsa.PrivateKey
	sender  common.Address
	chainID *big.Int
	routers map[string]common.Address
	gas     lookupGasPrice
	logger  logger.LoggerInterface
	cb      *circuitbreaker.CircuitBreaker[[]byte]
}

// lookupGasPrice decouples the contract from the oracle implementation.
type lookupGasPrice func(ctx context.Context) (*blockchaindomain.GasPrice, error)

// NewContract creates the settlement wrapper. routers maps venue names
// to their router addresses; both legs' venues must be present.
func NewContract(
	client *ethclient.Client,
	address common.Address,
	privateKeyHex string,
	chainID uint64,
	routers map[string]common.Address,
	gasPrice func(ctx context.Context) (*blockchaindomain.GasPrice, error),
	log logger.LoggerInterface,
) (*Contract, error) {
	parsedABI, err := abi.JSON(strings.NewReader(ContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse settlement ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	c := &Contract{
		client:  client,
		address: address,
		abi:     parsedABI,
		key:     key,
		sender:  crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).SetUint64(chainID),
		routers: routers,
		gas:     gasPrice,
		logger:  log,
	}

	cbCfg := circuitbreaker.DefaultConfig("settlement-rpc")
	c.cb = circuitbreaker.New[[]byte](cbCfg)

	return c, nil
}

// Sender returns the signing address.
func (c *Contract) Sender() common.Address {
	return c.sender
}

// Simulate dry-runs the settlement through the contract's view
// function. A contract-side revert (deadline passed, profit under
// floor) surfaces as a simulation failure.
func (c *Contract) Simulate(ctx context.Context, opp *arbitragedomain.Opportunity, minProfit decimal.Decimal, deadline time.Time, slippageBps int64) (decimal.Decimal, error) {
	callData, err := c.packCall("simulateArbitrage", opp, minProfit, deadline, slippageBps)
	if err != nil {
		return decimal.Zero, err
	}

	result, err := c.cb.Execute(func() ([]byte, error) {
		return c.client.CallContract(ctx, ethereum.CallMsg{
			From: c.sender,
			To:   &c.address,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeSimulationFailed,
			apperror.WithCause(err),
			apperror.WithContext(opp.ID))
	}

	outputs, err := c.abi.Unpack("simulateArbitrage", result)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeSimulationFailed,
			apperror.WithCause(err),
			apperror.WithContext("cannot decode simulated profit"))
	}

	profitWei := outputs[0].(*big.Int)
	profit := decimal.NewFromBigInt(profitWei, -int32(opp.BorrowToken.Decimals()))

	c.logger.Debug(ctx, "settlement simulated",
		"id", opp.ID,
		"profit", profit.String(),
		"min_profit", minProfit.String(),
	)

	return profit, nil
}

// BuildArbitrageTx builds and signs the settlement transaction.
func (c *Contract) BuildArbitrageTx(ctx context.Context, opp *arbitragedomain.Opportunity, minProfit decimal.Decimal, deadline time.Time, slippageBps int64) (*types.Transaction, error) {
	callData, err := c.packCall("executeArbitrage", opp, minProfit, deadline, slippageBps)
	if err != nil {
		return nil, err
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.sender)
	if err != nil {
		return nil, apperror.New(apperror.CodeNonceFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext(c.sender.Hex()))
	}

	gasPrice, err := c.gas(ctx)
	if err != nil {
		return nil, err
	}

	gasLimit := blockchaindomain.ArbitrageGasUnits(
		opp.TotalHops()-opp.ConcentratedHops(),
		opp.ConcentratedHops(),
	)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.address,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice.Wei,
		Data:     callData,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return signed, nil
}

// WaitMined polls for the transaction receipt until it lands or the
// timeout elapses.
func (c *Contract) WaitMined(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		if time.Now().After(deadline) {
			return nil, apperror.New(apperror.CodeReceiptTimeout,
				apperror.WithContext(fmt.Sprintf("no receipt for %s after %s", txHash.Hex(), timeout)))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// packCall encodes either entry point; both share a signature.
func (c *Contract) packCall(method string, opp *arbitragedomain.Opportunity, minProfit decimal.Decimal, deadline time.Time, slippageBps int64) ([]byte, error) {
	buyRouter, ok := c.routers[opp.BuyVenue]
	if !ok {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("no router for venue %s", opp.BuyVenue)))
	}
	sellRouter, ok := c.routers[opp.SellVenue]
	if !ok {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("no router for venue %s", opp.SellVenue)))
	}

	tokens := opp.Route.Tokens()
	path := make([]common.Address, len(tokens))
	for i, t := range tokens {
		path[i] = t.Address()
	}

	decimals := int32(opp.BorrowToken.Decimals())
	amountIn := opp.TradeSize.Shift(decimals).BigInt()
	minProfitWei := minProfit.Shift(decimals).Truncate(0).BigInt()

	return c.abi.Pack(method,
		path,
		buyRouter,
		sellRouter,
		amountIn,
		minProfitWei,
		big.NewInt(deadline.Unix()),
		big.NewInt(slippageBps),
	)
}

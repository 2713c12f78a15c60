// Package ethereum provides go-ethereum backed adapters for the
// blockchain context.
package ethereum

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

const (
	tracerName = "ethereum"
	meterName  = "ethereum"
)

// Dial connects to the RPC endpoint and verifies the chain ID matches
// the configured network before handing the client out.
func Dial(ctx context.Context, rpcURL string, wantChainID uint64, log logger.LoggerInterface) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to RPC endpoint"))
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to read chain ID"))
	}

	if chainID.Uint64() != wantChainID {
		client.Close()
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext(fmt.Sprintf("endpoint serves chain %d, expected %d",
				chainID.Uint64(), wantChainID)))
	}

	log.Info(ctx, "connected to chain", "chain_id", chainID.Uint64())

	return client, nil
}

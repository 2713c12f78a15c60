// Package mempool submits signed transactions through an ordered
// chain of transmission channels.
package mempool

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/replitcryptobots-blip/Sonicarbi/business/execution/app"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/httpclient"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

// Channel is one way of getting a signed transaction to the network.
type Channel interface {
	// Name identifies the channel in logs.
	Name() string

	// Submit broadcasts the transaction and returns its hash.
	Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error)
}

// Ensure Chain implements the Transmitter port.
var _ app.Transmitter = (*Chain)(nil)

// Chain tries each channel in order and returns on the first success.
// Preferred channels go first: private relay, then a private RPC, then
// the public mempool.
type Chain struct {
	channels []Channel
	log      logger.LoggerInterface
}

// NewChain creates a transmission chain.
func NewChain(log logger.LoggerInterface, channels ...Channel) (*Chain, error) {
	if len(channels) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("transmission chain needs at least one channel"))
	}
	return &Chain{channels: channels, log: log}, nil
}

// Submit walks the chain until a channel accepts the transaction.
func (c *Chain) Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	var lastErr error

	for _, ch := range c.channels {
		hash, err := ch.Submit(ctx, tx)
		if err == nil {
			c.log.Info(ctx, "transaction submitted",
				"channel", ch.Name(),
				"hash", hash.Hex(),
			)
			return hash, nil
		}

		lastErr = err
		c.log.Warn(ctx, "transmission channel failed",
			"channel", ch.Name(),
			"error", err.Error(),
		)
	}

	return common.Hash{}, apperror.New(apperror.CodeTransmissionFailed,
		apperror.WithCause(lastErr),
		apperror.WithContext("all transmission channels failed"))
}

// RPCChannel broadcasts through a standard JSON-RPC endpoint, private
// or public.
type RPCChannel struct {
	name   string
	client *ethclient.Client
}

// NewRPCChannel wraps an established client as a channel.
func NewRPCChannel(name string, client *ethclient.Client) *RPCChannel {
	return &RPCChannel{name: name, client: client}
}

// Name identifies the channel.
func (r *RPCChannel) Name() string { return r.name }

// Submit broadcasts through eth_sendRawTransaction.
func (r *RPCChannel) Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if err := r.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return tx.Hash(), nil
}

// jsonrpcRequest is a minimal JSON-RPC 2.0 envelope.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// jsonrpcResponse is the response envelope.
type jsonrpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// privateTxParams is the eth_sendPrivateTransaction parameter object.
type privateTxParams struct {
	Tx string `json:"tx"`
}

// RelayChannel submits through a privacy relay's
// eth_sendPrivateTransaction endpoint. Requests carry an
// X-Flashbots-Signature header signed with a dedicated identity key.
type RelayChannel struct {
	client     httpclient.Client
	signingKey *ecdsa.PrivateKey
	signer     common.Address
}

// NewRelayChannel creates a relay channel. The signing key identifies
// the searcher to the relay; it is not the transaction sender key.
func NewRelayChannel(relayURL string, signingKey *ecdsa.PrivateKey) (*RelayChannel, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("privacy-relay"),
		httpclient.WithBaseURL(relayURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	return &RelayChannel{
		client:     client,
		signingKey: signingKey,
		signer:     crypto.PubkeyToAddress(signingKey.PublicKey),
	}, nil
}

// Name identifies the channel.
func (r *RelayChannel) Name() string { return "privacy-relay" }

// Submit sends the raw transaction to the relay.
func (r *RelayChannel) Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode transaction: %w", err)
	}

	body, err := json.Marshal(jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_sendPrivateTransaction",
		Params:  []any{privateTxParams{Tx: hexutil.Encode(raw)}},
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode request: %w", err)
	}

	signature, err := r.signBody(body)
	if err != nil {
		return common.Hash{}, err
	}

	var result jsonrpcResponse
	resp, err := r.client.NewRequest().
		SetHeader("X-Flashbots-Signature", signature).
		SetBody(json.RawMessage(body)).
		SetResult(&result).
		Post(ctx, "")
	if err != nil {
		return common.Hash{}, err
	}

	if resp.IsError() {
		return common.Hash{}, fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	if result.Error != nil {
		return common.Hash{}, fmt.Errorf("relay rejected transaction: %s", result.Error.Message)
	}

	return tx.Hash(), nil
}

// signBody produces the relay identity header: the signer address and
// an EIP-191 signature over the hex-encoded body hash.
func (r *RelayChannel) signBody(body []byte) (string, error) {
	hashed := accounts.TextHash([]byte(hexutil.Encode(crypto.Keccak256(body))))

	sig, err := crypto.Sign(hashed, r.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign request body: %w", err)
	}

	return fmt.Sprintf("%s:%s", r.signer.Hex(), hexutil.Encode(sig)), nil
}

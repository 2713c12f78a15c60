package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum      = 1
	ChainIDScroll        = 534352
	ChainIDScrollSepolia = 534351
	ChainIDFiat          = 0 // Off-chain / fiat
)

// Well-known token addresses on Scroll Mainnet
var (
	AddrWETHScroll   = common.HexToAddress("0x5300000000000000000000000000000000000004")
	AddrUSDCScroll   = common.HexToAddress("0x06eFdBFf2a14a7c8E15944D1F4A48F9F95F663A4")
	AddrUSDTScroll   = common.HexToAddress("0xf55BEC9cafDbE8730f096Aa55dad6D22d44099Df")
	AddrWBTCScroll   = common.HexToAddress("0x3C1BCa5a656e69edCD0D4E36BEbb3FcDAcA60Cf1")
	AddrWstETHScroll = common.HexToAddress("0xf610A9dfB7C89644979b4A0f27063E9e7d7Cda32")
)

// Well-known AssetIDs
var (
	// Scroll Mainnet
	IDScrollETH    = NewNativeAssetID(ChainIDScroll)
	IDScrollWETH   = NewTokenAssetID(ChainIDScroll, AddrWETHScroll)
	IDScrollUSDC   = NewTokenAssetID(ChainIDScroll, AddrUSDCScroll)
	IDScrollUSDT   = NewTokenAssetID(ChainIDScroll, AddrUSDTScroll)
	IDScrollWBTC   = NewTokenAssetID(ChainIDScroll, AddrWBTCScroll)
	IDScrollWstETH = NewTokenAssetID(ChainIDScroll, AddrWstETHScroll)

	// Fiat
	IDUSD = NewFiatAssetID("USD")
)

// Well-known Assets (pre-created instances)
var (
	// Scroll Mainnet
	ETH    = NewAssetWithName(IDScrollETH, "ETH", "Ether", 18)
	WETH   = NewAssetWithName(IDScrollWETH, "WETH", "Wrapped Ether", 18)
	USDC   = NewAssetWithName(IDScrollUSDC, "USDC", "USD Coin", 6)
	USDT   = NewAssetWithName(IDScrollUSDT, "USDT", "Tether USD", 6)
	WBTC   = NewAssetWithName(IDScrollWBTC, "WBTC", "Wrapped Bitcoin", 8)
	WstETH = NewAssetWithName(IDScrollWstETH, "wstETH", "Wrapped stETH", 18)

	// Fiat
	USD = NewAssetWithName(IDUSD, "USD", "US Dollar", 2)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Scroll Mainnet
	r.Register(ETH)
	r.Register(WETH)
	r.Register(USDC)
	r.Register(USDT)
	r.Register(WBTC)
	r.Register(WstETH)

	// Fiat
	r.Register(USD)

	return r
}

// MustNewToken creates a new ERC20 token asset with the given parameters.
// This is a convenience function for registering custom tokens.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	id := NewTokenAssetID(chainID, address)
	return NewAssetWithName(id, symbol, name, decimals)
}

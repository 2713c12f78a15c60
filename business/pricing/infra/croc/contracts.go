package croc

// DefaultPoolIdx is the canonical pool index used by the deployed
// venue on Scroll.
const DefaultPoolIdx = 420

// QueryABI is the ABI for the on-chain query contract. Only includes
// queryPrice which returns the pool's current Q64.64 square-root price.
const QueryABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "base", "type": "address"},
			{"internalType": "address", "name": "quote", "type": "address"},
			{"internalType": "uint256", "name": "poolIdx", "type": "uint256"}
		],
		"name": "queryPrice",
		"outputs": [
			{"internalType": "uint128", "name": "", "type": "uint128"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

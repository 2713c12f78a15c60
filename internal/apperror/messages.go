package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeNonceFetchFailed:         "Failed to fetch account nonce",
	CodeReceiptTimeout:           "Timed out waiting for transaction receipt",

	// Routing errors
	CodeTokenNotFound:     "Token not found in registry",
	CodeIntermediaryLimit: "Intermediary token universe exceeds the configured limit",
	CodePathLimitExceeded: "Candidate path count exceeds the configured limit",

	// Pricing errors
	CodeQuoteUnavailable:       "No quote available for pool",
	CodePoolNotFound:           "Liquidity pool not found",
	CodeUndefinedPrice:         "Price is undefined for empty reserves",
	CodePriceCalculationFailed: "Price calculation failed",
	CodeContractCallFailed:     "Smart contract call failed",
	CodeFeeModelMismatch:       "Venue adapter does not produce fee-inclusive quotes",

	// Evaluation errors
	CodeValuationUnavailable:  "No reference price available for profit valuation",
	CodeStaleReferencePrice:   "Reference price is stale",
	CodeInsufficientLiquidity: "Insufficient liquidity for trade size",
	CodeInvalidTradeSize:      "Invalid trade size",

	// Execution errors
	CodeSlippageExceeded:       "Quoted price moved beyond the slippage tolerance",
	CodeSimulationFailed:       "On-chain simulation failed",
	CodeSimulationUnprofitable: "Simulation returned profit below the required minimum",
	CodeTransmissionFailed:     "All transaction channels failed",
	CodeSettlementReverted:     "Settlement transaction reverted on chain",
	CodeExecutionBusy:          "An execution is already in flight",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}

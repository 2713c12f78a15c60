package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Arbitrage pipeline error codes
const (
	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeNonceFetchFailed         Code = "NONCE_FETCH_FAILED"
	CodeReceiptTimeout           Code = "RECEIPT_TIMEOUT"

	// Routing errors
	CodeTokenNotFound     Code = "TOKEN_NOT_FOUND"
	CodeIntermediaryLimit Code = "INTERMEDIARY_LIMIT_EXCEEDED"
	CodePathLimitExceeded Code = "PATH_LIMIT_EXCEEDED"

	// Pricing errors
	CodeQuoteUnavailable       Code = "QUOTE_UNAVAILABLE"
	CodePoolNotFound           Code = "POOL_NOT_FOUND"
	CodeUndefinedPrice         Code = "UNDEFINED_PRICE"
	CodePriceCalculationFailed Code = "PRICE_CALCULATION_FAILED"
	CodeContractCallFailed     Code = "CONTRACT_CALL_FAILED"
	CodeFeeModelMismatch       Code = "FEE_MODEL_MISMATCH"

	// Evaluation errors
	CodeValuationUnavailable  Code = "VALUATION_UNAVAILABLE"
	CodeStaleReferencePrice   Code = "STALE_REFERENCE_PRICE"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidTradeSize      Code = "INVALID_TRADE_SIZE"

	// Execution errors
	CodeSlippageExceeded       Code = "SLIPPAGE_EXCEEDED"
	CodeSimulationFailed       Code = "SIMULATION_FAILED"
	CodeSimulationUnprofitable Code = "SIMULATION_UNPROFITABLE"
	CodeTransmissionFailed     Code = "TRANSMISSION_FAILED"
	CodeSettlementReverted     Code = "SETTLEMENT_REVERTED"
	CodeExecutionBusy          Code = "EXECUTION_BUSY"

	// Cache errors
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)

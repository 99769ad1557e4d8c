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

// Trading engine error codes
const (
	// Pair universe errors
	CodeInvalidPairData   Code = "INVALID_PAIR_DATA"
	CodeNoPathsFound      Code = "NO_PATHS_FOUND"
	CodeUnknownAsset      Code = "UNKNOWN_ASSET"
	CodeUniverseNotLoaded Code = "UNIVERSE_NOT_LOADED"

	// Path cache errors
	CodeCacheCorrupt Code = "CACHE_CORRUPT"
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheStore   Code = "CACHE_STORE_FAILED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Venue (Binance) errors
	CodeConnectivityError    Code = "CONNECTIVITY_ERROR"
	CodeVenueAPIError        Code = "VENUE_API_ERROR"
	CodeVenueRateLimited     Code = "VENUE_RATE_LIMITED"
	CodeOrderbookFetchFailed Code = "ORDERBOOK_FETCH_FAILED"
	CodeInvalidOrderbook     Code = "INVALID_ORDERBOOK"
	CodeOrderRejected        Code = "ORDER_REJECTED"

	// Opportunity scanning errors
	CodeStaleQuote            Code = "STALE_QUOTE"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidTradeSize      Code = "INVALID_TRADE_SIZE"

	// Execution errors
	CodeSlippageExceeded Code = "SLIPPAGE_EXCEEDED"
	CodePartialExecution Code = "PARTIAL_EXECUTION"
	CodeExecutionAborted Code = "EXECUTION_ABORTED"
	CodeUnwindFailed     Code = "UNWIND_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)

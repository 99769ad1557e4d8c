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

	// Pair universe errors
	CodeInvalidPairData:   "Pair metadata is malformed or incomplete",
	CodeNoPathsFound:      "No triangular paths found for the current universe",
	CodeUnknownAsset:      "Asset is not part of the pair universe",
	CodeUniverseNotLoaded: "Pair universe has not been loaded yet",

	// Path cache errors
	CodeCacheCorrupt: "Path cache is corrupt or has an incompatible version",
	CodeCacheMiss:    "No cached paths for this universe fingerprint",
	CodeCacheStore:   "Failed to persist paths to cache",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Venue (Binance) errors
	CodeConnectivityError:    "Failed to reach the trading venue",
	CodeVenueAPIError:        "Venue API error",
	CodeVenueRateLimited:     "Venue rate limit exceeded",
	CodeOrderbookFetchFailed: "Failed to fetch orderbook",
	CodeInvalidOrderbook:     "Invalid orderbook data",
	CodeOrderRejected:        "Order rejected by venue",

	// Opportunity scanning errors
	CodeStaleQuote:            "Quote is older than the freshness window",
	CodeInsufficientLiquidity: "Insufficient liquidity for trade size",
	CodeInvalidTradeSize:      "Invalid trade size",

	// Execution errors
	CodeSlippageExceeded: "Price moved beyond slippage tolerance",
	CodePartialExecution: "Execution failed after one or more legs filled",
	CodeExecutionAborted: "Execution aborted before any fill",
	CodeUnwindFailed:     "Best-effort unwind of filled legs failed",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}

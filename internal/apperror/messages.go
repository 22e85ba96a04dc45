package apperror

// messages maps error codes to default human-readable messages.
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidFormat:      "Invalid data format",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeMulticallFailed:          "Batched contract call failed",
	CodeRateLimitExceeded:        "Rate limit exceeded",
	CodeCircuitOpen:              "Circuit breaker is open",

	CodeUnsupportedAsset:       "Asset is not a supported on-chain token",
	CodePoolStateError:         "Pool has unreadable or degenerate state",
	CodePriceCalculationFailed: "Price calculation failed",
}

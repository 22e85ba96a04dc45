package apperror

// Code is a unique, stable error code.
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Chain access error codes
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeMulticallFailed          Code = "MULTICALL_FAILED"
	CodeRateLimitExceeded        Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
)

// Price oracle error codes
const (
	// CodeUnsupportedAsset: the input asset is not a fungible on-chain token
	// this engine can price. Fatal to the call, never retried.
	CodeUnsupportedAsset Code = "UNSUPPORTED_ASSET"

	// CodePoolStateError: a resolved pool has unreadable or degenerate state
	// (unknown decimals, zero reserves, zero price, unresolvable constituent
	// token, too little one-sided liquidity). Fatal to the current query only.
	CodePoolStateError Code = "POOL_STATE_ERROR"

	CodePriceCalculationFailed Code = "PRICE_CALCULATION_FAILED"
)

package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDPolygon  = 137
	ChainIDArbitrum = 42161
	ChainIDBase     = 8453
	ChainIDFiat     = 0
)

// Well-known token addresses on Ethereum Mainnet
var (
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrDAIEthereum  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// Well-known assets (pre-created instances)
var (
	ETH  = NewNative(ChainIDEthereum, "ETH", "Ethereum", 18)
	WETH = NewToken(ChainIDEthereum, AddrWETHEthereum, "WETH", "Wrapped Ether", 18, StandardERC20)
	DAI  = NewToken(ChainIDEthereum, AddrDAIEthereum, "DAI", "Dai Stablecoin", 18, StandardERC20)
	USDT = NewToken(ChainIDEthereum, AddrUSDTEthereum, "USDT", "Tether USD", 6, StandardERC20)
	USDC = NewToken(ChainIDEthereum, AddrUSDCEthereum, "USDC", "USD Coin", 6, StandardERC20)
	WBTC = NewToken(ChainIDEthereum, AddrWBTCEthereum, "WBTC", "Wrapped Bitcoin", 8, StandardERC20)

	USD = NewFiat("USD", "US Dollar", 2)
	EUR = NewFiat("EUR", "Euro", 2)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ETH)
	r.Register(WETH)
	r.Register(DAI)
	r.Register(USDT)
	r.Register(USDC)
	r.Register(WBTC)
	r.Register(USD)
	r.Register(EUR)
	return r
}

// DefaultRoutingAssets returns the bridge assets used for multi-hop routing,
// in probe order. Order is an iteration tie-break, not a correctness
// requirement: the first bridge that closes a path wins.
func DefaultRoutingAssets() []*Asset {
	return []*Asset{WETH, DAI, USDT}
}

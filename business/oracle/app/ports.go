// Package app contains the price oracle service and its port definitions.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/chainprice/business/oracle/domain"
	"github.com/foliotrack/chainprice/internal/asset"
)

// ContractCall is a read-only call to a contract: target plus ABI-encoded
// calldata.
type ContractCall struct {
	To   common.Address
	Data []byte
}

// ChainCaller executes read-only contract calls against a blockchain node,
// pinned to an optional block number (nil means latest). Implementations own
// timeout, rate limiting and breaker policy; this engine performs no retries
// of its own.
type ChainCaller interface {
	// CallContract executes a single eth_call.
	CallContract(ctx context.Context, call ContractCall, block *big.Int) ([]byte, error)

	// MulticallRequireSuccess executes the calls in one batched round trip
	// and fails if any individual call reverts.
	MulticallRequireSuccess(ctx context.Context, calls []ContractCall, block *big.Int) ([][]byte, error)
}

// PoolResolver locates canonical pool addresses for a token pair and reads
// pool state into a PoolPrice. One implementation exists per AMM protocol
// version.
type PoolResolver interface {
	// ProtocolName identifies the protocol version, e.g. "uniswap-v2".
	ProtocolName() string

	// GetPool returns candidate pool addresses for the pair. Entries may be
	// the zero address when the registry has no pool; callers must filter.
	GetPool(ctx context.Context, token0, token1 *asset.Asset) ([]common.Address, error)

	// GetPoolPrice reads the pool's on-chain state at the given block and
	// returns its price snapshot. Fails with a pool-state error when the
	// pool is degenerate or unreadable.
	GetPoolPrice(ctx context.Context, pool common.Address, block *big.Int) (domain.PoolPrice, error)
}

// USDPriceLookup supplies last-known USD spot prices for tokens. A zero
// price means "unknown". skipOnchain disables on-chain fallbacks so that
// pool validation cannot recurse back into this oracle.
type USDPriceLookup interface {
	FindUSDPrice(ctx context.Context, token *asset.Asset, skipOnchain bool) (decimal.Decimal, error)
}

// StaticUSDPriceLookup is a fixed-table USDPriceLookup, used when no richer
// price inquirer is wired in.
type StaticUSDPriceLookup map[asset.AssetID]decimal.Decimal

// FindUSDPrice returns the table entry for the token, zero when absent.
func (s StaticUSDPriceLookup) FindUSDPrice(_ context.Context, token *asset.Asset, _ bool) (decimal.Decimal, error) {
	if token == nil {
		return decimal.Zero, nil
	}
	return s[token.ID()], nil
}

// DefaultUSDPriceLookup returns a lookup that pins the major USD stablecoins
// at one dollar and knows nothing else.
func DefaultUSDPriceLookup() StaticUSDPriceLookup {
	one := decimal.New(1, 0)
	return StaticUSDPriceLookup{
		asset.USDC.ID(): one,
		asset.USDT.ID(): one,
		asset.DAI.ID():  one,
	}
}

// Package domain contains the core domain types for the oracle context.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/chainprice/internal/asset"
)

// PoolPrice is an immutable snapshot of a pool's relative price: units of
// Token1 per one unit of Token0, as stored by the pool contract. The pool,
// not the query, decides which token is token0.
type PoolPrice struct {
	Price  decimal.Decimal
	Token0 *asset.Asset
	Token1 *asset.Asset
}

// NewPoolPrice creates a PoolPrice snapshot.
func NewPoolPrice(price decimal.Decimal, token0, token1 *asset.Asset) PoolPrice {
	if token0 == nil || token1 == nil {
		panic("domain: nil token in pool price")
	}
	return PoolPrice{Price: price, Token0: token0, Token1: token1}
}

// SwapTokens returns the pool price seen from the opposite direction:
// reciprocal price with token0 and token1 exchanged. Applying it twice
// restores the original up to numeric precision.
func (p PoolPrice) SwapTokens() PoolPrice {
	inv := decimal.Zero
	if !p.Price.IsZero() {
		inv = decimal.New(1, 0).Div(p.Price)
	}
	return PoolPrice{
		Price:  inv,
		Token0: p.Token1,
		Token1: p.Token0,
	}
}

// String returns a human-readable representation.
func (p PoolPrice) String() string {
	return fmt.Sprintf("%s %s/%s", p.Price.String(), p.Token1.Symbol(), p.Token0.Symbol())
}

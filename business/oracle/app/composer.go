package app

import (
	"github.com/shopspring/decimal"

	"github.com/foliotrack/chainprice/business/oracle/domain"
	"github.com/foliotrack/chainprice/internal/asset"
)

// composeRoutePrice orients each hop's pool price to the direction of travel
// and multiplies the rates into a single fromToken->toToken price.
//
// The first hop is flipped when its token0 is not the source, the last hop
// when its token1 is not the destination. Interior hops are flipped when
// their token0 does not match the previous hop's token1 as the pool reported
// it, before any orientation. Matching against the unoriented neighbour keeps
// parity with long-standing behavior that downstream consumers depend on.
func composeRoutePrice(hops []domain.PoolPrice, fromToken, toToken *asset.Asset) decimal.Decimal {
	if len(hops) == 0 {
		return decimal.Zero
	}

	oriented := make([]domain.PoolPrice, len(hops))
	for i, hop := range hops {
		switch {
		case i == 0:
			if !hop.Token0.Equals(fromToken) {
				hop = hop.SwapTokens()
			}
		case i == len(hops)-1:
			if !hop.Token1.Equals(toToken) {
				hop = hop.SwapTokens()
			}
		default:
			if !hop.Token0.Equals(hops[i-1].Token1) {
				hop = hop.SwapTokens()
			}
		}
		oriented[i] = hop
	}

	price := oriented[0].Price
	for _, hop := range oriented[1:] {
		price = price.Mul(hop.Price)
	}
	return price
}

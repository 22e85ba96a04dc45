package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/chainprice/business/oracle/domain"
	"github.com/foliotrack/chainprice/internal/asset"
)

func hop(price float64, token0, token1 *asset.Asset) domain.PoolPrice {
	return domain.NewPoolPrice(decimal.NewFromFloat(price), token0, token1)
}

func TestComposeRoutePrice_SingleHopAligned(t *testing.T) {
	// WETH/USDT pool quoting 2000 USDT per WETH, queried WETH -> USDT.
	got := composeRoutePrice(
		[]domain.PoolPrice{hop(2000, asset.WETH, asset.USDT)},
		asset.WETH, asset.USDT,
	)
	if !got.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000, got %s", got.String())
	}
}

func TestComposeRoutePrice_SingleHopFlipped(t *testing.T) {
	// Same pool queried the other way around.
	got := composeRoutePrice(
		[]domain.PoolPrice{hop(2000, asset.WETH, asset.USDT)},
		asset.USDT, asset.WETH,
	)
	if !got.Equal(decimal.NewFromFloat(0.0005)) {
		t.Errorf("expected 0.0005, got %s", got.String())
	}
}

func TestComposeRoutePrice_TwoHops(t *testing.T) {
	// WBTC -> WETH -> USDC. The second pool stores WETH per USDC, so the
	// last hop has to be reoriented toward the destination.
	got := composeRoutePrice(
		[]domain.PoolPrice{
			hop(20, asset.WBTC, asset.WETH),
			hop(0.0005, asset.USDC, asset.WETH),
		},
		asset.WBTC, asset.USDC,
	)
	if !got.Equal(decimal.NewFromInt(40000)) {
		t.Errorf("expected 40000, got %s", got.String())
	}
}

func TestComposeRoutePrice_LastHopOrientedToDestination(t *testing.T) {
	// WETH -> DAI -> USDT where the second pool stores DAI per USDT. The
	// first hop already faces the right way; the last one flips to end in
	// USDT, giving 2000 * 1 = 2000.
	got := composeRoutePrice(
		[]domain.PoolPrice{
			hop(2000, asset.WETH, asset.DAI),
			hop(1, asset.USDT, asset.DAI),
		},
		asset.WETH, asset.USDT,
	)
	if !got.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000, got %s", got.String())
	}
}

func TestComposeRoutePrice_ThreeHopsInteriorFlip(t *testing.T) {
	// WBTC -> WETH -> DAI -> USDC. The middle pool stores WETH per DAI, so
	// its token0 does not match the first pool's token1 and it gets flipped.
	got := composeRoutePrice(
		[]domain.PoolPrice{
			hop(20, asset.WBTC, asset.WETH),
			hop(0.0005, asset.DAI, asset.WETH),
			hop(1, asset.USDC, asset.DAI),
		},
		asset.WBTC, asset.USDC,
	)
	if !got.Equal(decimal.NewFromInt(40000)) {
		t.Errorf("expected 40000, got %s", got.String())
	}
}

func TestComposeRoutePrice_InteriorComparesUnorientedNeighbour(t *testing.T) {
	// The first hop gets flipped toward the source, but the interior hop is
	// still matched against the first pool's stored token1, not the flipped
	// one.
	got := composeRoutePrice(
		[]domain.PoolPrice{
			hop(0.05, asset.WETH, asset.WBTC),
			hop(2000, asset.WETH, asset.DAI),
			hop(1, asset.DAI, asset.USDC),
		},
		asset.WBTC, asset.USDC,
	)
	// First hop flips to 20. The interior hop's token0 (WETH) mismatches the
	// first pool's stored token1 (WBTC) and flips to 0.0005, giving
	// 20 * 0.0005 * 1 = 0.01. Matching the flipped neighbour instead would
	// keep 2000 and yield 40000.
	if !got.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("expected 0.01, got %s", got.String())
	}
}

func TestComposeRoutePrice_Empty(t *testing.T) {
	got := composeRoutePrice(nil, asset.WETH, asset.USDT)
	if !got.IsZero() {
		t.Errorf("expected zero for empty route, got %s", got.String())
	}
}

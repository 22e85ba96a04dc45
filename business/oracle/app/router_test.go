package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/foliotrack/chainprice/business/oracle/domain"
	"github.com/foliotrack/chainprice/internal/asset"
)

// fakeResolver scripts pool lookups by "FROM/TO" symbol pairs, in the exact
// argument order the router uses.
type fakeResolver struct {
	pools      map[string]common.Address
	prices     map[common.Address]domain.PoolPrice
	poolCalls  []string
	priceCalls []common.Address
}

func (f *fakeResolver) ProtocolName() string { return "fake" }

func (f *fakeResolver) GetPool(_ context.Context, token0, token1 *asset.Asset) ([]common.Address, error) {
	key := token0.Symbol() + "/" + token1.Symbol()
	f.poolCalls = append(f.poolCalls, key)
	if addr, ok := f.pools[key]; ok {
		return []common.Address{addr}, nil
	}
	return []common.Address{{}}, nil
}

func (f *fakeResolver) GetPoolPrice(_ context.Context, pool common.Address, _ *big.Int) (domain.PoolPrice, error) {
	f.priceCalls = append(f.priceCalls, pool)
	return f.prices[pool], nil
}

func newTestOracle(t *testing.T, resolver PoolResolver) *Oracle {
	t.Helper()
	o, err := New(resolver, asset.DefaultRegistry())
	if err != nil {
		t.Fatalf("failed to create oracle: %v", err)
	}
	return o
}

var (
	poolA = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	poolB = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	poolC = common.HexToAddress("0x0000000000000000000000000000000000000a03")
)

func TestFindRoute_DirectHop(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{
		"WETH/WBTC": poolA,
	}}
	o := newTestOracle(t, resolver)

	route, err := o.FindRoute(context.Background(), asset.WETH, asset.WBTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route) != 1 || route[0] != poolA {
		t.Fatalf("expected direct route [%s], got %v", poolA.Hex(), route.Strings())
	}
}

func TestFindRoute_SameToken(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{}}
	o := newTestOracle(t, resolver)

	route, err := o.FindRoute(context.Background(), asset.WBTC, asset.WBTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !route.IsEmpty() {
		t.Fatalf("expected empty route for same token, got %v", route.Strings())
	}
	if len(resolver.poolCalls) != 0 {
		t.Errorf("expected no pool lookups, got %v", resolver.poolCalls)
	}
}

func TestFindRoute_TwoHops(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{
		"WBTC/WETH": poolA,
		"USDC/WETH": poolB,
	}}
	o := newTestOracle(t, resolver)

	route, err := o.FindRoute(context.Background(), asset.WBTC, asset.USDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route) != 2 || route[0] != poolA || route[1] != poolB {
		t.Fatalf("expected [%s %s], got %v", poolA.Hex(), poolB.Hex(), route.Strings())
	}
}

func TestFindRoute_ThreeHopsMiddleInserted(t *testing.T) {
	// WBTC bridges through WETH, USDC only reaches DAI, so the route needs
	// the WETH/DAI pool in the middle.
	resolver := &fakeResolver{pools: map[string]common.Address{
		"WBTC/WETH": poolA,
		"USDC/DAI":  poolB,
		"WETH/DAI":  poolC,
	}}
	o := newTestOracle(t, resolver)

	route, err := o.FindRoute(context.Background(), asset.WBTC, asset.USDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route) != 3 {
		t.Fatalf("expected 3 hops, got %v", route.Strings())
	}
	if route[0] != poolA || route[1] != poolC || route[2] != poolB {
		t.Fatalf("expected [%s %s %s], got %v", poolA.Hex(), poolC.Hex(), poolB.Hex(), route.Strings())
	}
}

func TestFindRoute_CommitsToFirstBridge(t *testing.T) {
	// WBTC/WETH exists, so routing commits to WETH even though the WETH leg
	// is a dead end while WBTC/DAI + USDC/DAI would connect.
	resolver := &fakeResolver{pools: map[string]common.Address{
		"WBTC/WETH": poolA,
		"WBTC/DAI":  poolB,
	}}
	o := newTestOracle(t, resolver)

	route, err := o.FindRoute(context.Background(), asset.WBTC, asset.USDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !route.IsEmpty() {
		t.Fatalf("expected no route, got %v", route.Strings())
	}
	for _, call := range resolver.poolCalls {
		if call == "WBTC/DAI" {
			t.Error("expected no retry of the first hop with another bridge")
		}
	}
}

func TestFindRoute_NoPath(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{}}
	o := newTestOracle(t, resolver)

	route, err := o.FindRoute(context.Background(), asset.WBTC, asset.USDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !route.IsEmpty() {
		t.Fatalf("expected empty route, got %v", route.Strings())
	}
}

func TestFindRoute_NeverExceedsHopBudget(t *testing.T) {
	// Fully connected pool set; whatever path is found must stay within the
	// hop budget.
	resolver := &fakeResolver{pools: map[string]common.Address{
		"WBTC/WETH": poolA,
		"USDC/WETH": poolB,
		"USDC/DAI":  poolC,
		"WETH/DAI":  poolC,
	}}
	o := newTestOracle(t, resolver)

	route, err := o.FindRoute(context.Background(), asset.WBTC, asset.USDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route) > domain.MaxRouteHops {
		t.Fatalf("route %v exceeds %d hops", route.Strings(), domain.MaxRouteHops)
	}
}

package app

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/chainprice/business/oracle/domain"
	"github.com/foliotrack/chainprice/internal/apperror"
	"github.com/foliotrack/chainprice/internal/asset"
)

func TestGetPrice_SameTokenNoNetworkCalls(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{}}
	o := newTestOracle(t, resolver)

	price, err := o.GetPrice(context.Background(), asset.WETH, asset.WETH, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Rate().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected rate 1, got %s", price.Rate().String())
	}
	if len(resolver.poolCalls) != 0 || len(resolver.priceCalls) != 0 {
		t.Error("expected no resolver calls for a same-token query")
	}
}

func TestGetPrice_NativeCollapsesToWrapped(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{}}
	o := newTestOracle(t, resolver)

	// ETH is priced through WETH, so ETH/WETH is a same-token pair.
	price, err := o.GetPrice(context.Background(), asset.ETH, asset.WETH, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Rate().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected rate 1, got %s", price.Rate().String())
	}
	if len(resolver.poolCalls) != 0 {
		t.Error("expected no pool lookups")
	}
}

func TestGetPrice_UnsupportedAsset(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{}}
	o := newTestOracle(t, resolver)

	_, err := o.GetPrice(context.Background(), asset.EUR, asset.WETH, nil)
	if !apperror.IsCode(err, apperror.CodeUnsupportedAsset) {
		t.Fatalf("expected unsupported asset error, got %v", err)
	}
	if len(resolver.poolCalls) != 0 {
		t.Error("expected no pool lookups for an unsupported asset")
	}
}

func TestGetPrice_NoRouteIsZeroNotError(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{}}
	o := newTestOracle(t, resolver)

	price, err := o.GetPrice(context.Background(), asset.WBTC, asset.USDC, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.IsZero() {
		t.Errorf("expected zero price, got %s", price.Rate().String())
	}
}

func TestGetPrice_DirectPool(t *testing.T) {
	resolver := &fakeResolver{
		pools: map[string]common.Address{
			"WETH/USDT": poolA,
		},
		prices: map[common.Address]domain.PoolPrice{
			poolA: hop(2000, asset.WETH, asset.USDT),
		},
	}
	o := newTestOracle(t, resolver)

	price, err := o.GetPrice(context.Background(), asset.WETH, asset.USDT, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Rate().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000, got %s", price.Rate().String())
	}
	if !price.Base().Equals(asset.WETH) || !price.Quote().Equals(asset.USDT) {
		t.Errorf("expected WETH/USDT pair, got %s", price.Pair())
	}
}

func TestQueryCurrentPrice_USDBecomesUSDC(t *testing.T) {
	resolver := &fakeResolver{
		pools: map[string]common.Address{
			"WETH/USDC": poolA,
		},
		prices: map[common.Address]domain.PoolPrice{
			poolA: hop(2000, asset.WETH, asset.USDC),
		},
	}
	o := newTestOracle(t, resolver)

	price, cached, err := o.QueryCurrentPrice(context.Background(), asset.WETH, asset.USD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached {
		t.Error("expected cached to always be false")
	}
	if !price.Rate().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000, got %s", price.Rate().String())
	}
	if len(resolver.poolCalls) == 0 || resolver.poolCalls[0] != "WETH/USDC" {
		t.Errorf("expected USD to be queried as USDC, lookups: %v", resolver.poolCalls)
	}
}

func TestQueryCurrentPrice_OnlyDestinationSubstituted(t *testing.T) {
	resolver := &fakeResolver{pools: map[string]common.Address{}}
	o := newTestOracle(t, resolver)

	// With USD on both sides only the destination is substituted, so the
	// source stays fiat and gets rejected.
	_, _, err := o.QueryCurrentPrice(context.Background(), asset.USD, asset.USD)
	if !apperror.IsCode(err, apperror.CodeUnsupportedAsset) {
		t.Fatalf("expected unsupported asset error, got %v", err)
	}
}

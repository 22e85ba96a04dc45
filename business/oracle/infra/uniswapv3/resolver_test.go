package uniswapv3

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/chainprice/business/oracle/app"
	"github.com/foliotrack/chainprice/internal/apperror"
	"github.com/foliotrack/chainprice/internal/asset"
	"github.com/foliotrack/chainprice/internal/config"
	"github.com/foliotrack/chainprice/internal/logger"
)

// fakeCaller replays scripted responses in call order.
type fakeCaller struct {
	callResults  [][]byte
	multiResults [][][]byte
	callCount    int
	multiCount   int
}

func (f *fakeCaller) CallContract(_ context.Context, _ app.ContractCall, _ *big.Int) ([]byte, error) {
	res := f.callResults[f.callCount]
	f.callCount++
	return res, nil
}

func (f *fakeCaller) MulticallRequireSuccess(_ context.Context, _ []app.ContractCall, _ *big.Int) ([][]byte, error) {
	res := f.multiResults[f.multiCount]
	f.multiCount++
	return res, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Ethereum: config.EthereumConfig{ChainID: asset.ChainIDEthereum},
		Uniswap: config.UniswapConfig{
			V2FactoryAddress: "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
			V3FactoryAddress: "0x1F98431c8aD98523631AE4a59f267346ea31F984",
			PoolCacheTTL:     time.Minute,
		},
	}
}

func newTestResolver(t *testing.T, caller app.ChainCaller) *Resolver {
	t.Helper()
	r, err := NewResolver(caller, testConfig(), logger.NewNop())
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}
	return r
}

func packOutputs(t *testing.T, abiJSON, method string, values ...any) []byte {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		t.Fatalf("failed to parse ABI: %v", err)
	}
	out, err := parsed.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("failed to pack %s outputs: %v", method, err)
	}
	return out
}

var (
	poolLow  = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	poolHigh = common.HexToAddress("0x0000000000000000000000000000000000000b02")
)

func getPoolBatch(t *testing.T, pools ...common.Address) [][]byte {
	t.Helper()
	out := make([][]byte, len(pools))
	for i, pool := range pools {
		out[i] = packOutputs(t, FactoryABI, "getPool", pool)
	}
	return out
}

func liquidityOutput(t *testing.T, liq int64) []byte {
	t.Helper()
	return packOutputs(t, PoolABI, "liquidity", big.NewInt(liq))
}

func TestGetPool_PicksHighestLiquidity(t *testing.T) {
	caller := &fakeCaller{
		multiResults: [][][]byte{
			getPoolBatch(t, poolLow, poolHigh, common.Address{}),
		},
		callResults: [][]byte{
			liquidityOutput(t, 100),
			liquidityOutput(t, 500),
		},
	}
	r := newTestResolver(t, caller)

	pools, err := r.GetPool(context.Background(), asset.WETH, asset.USDT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pools) != 1 || pools[0] != poolHigh {
		t.Fatalf("expected [%s], got %v", poolHigh.Hex(), pools)
	}
}

func TestGetPool_SkipsEmptyPools(t *testing.T) {
	// Three deployed pools with liquidity [0, 500, 0]; the middle one wins.
	poolMid := common.HexToAddress("0x0000000000000000000000000000000000000b03")
	caller := &fakeCaller{
		multiResults: [][][]byte{
			getPoolBatch(t, poolLow, poolMid, poolHigh),
		},
		callResults: [][]byte{
			liquidityOutput(t, 0),
			liquidityOutput(t, 500),
			liquidityOutput(t, 0),
		},
	}
	r := newTestResolver(t, caller)

	pools, err := r.GetPool(context.Background(), asset.WETH, asset.USDT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pools) != 1 || pools[0] != poolMid {
		t.Fatalf("expected [%s], got %v", poolMid.Hex(), pools)
	}
}

func TestGetPool_TieKeepsEarlierTier(t *testing.T) {
	caller := &fakeCaller{
		multiResults: [][][]byte{
			getPoolBatch(t, poolLow, poolHigh, common.Address{}),
		},
		callResults: [][]byte{
			liquidityOutput(t, 500),
			liquidityOutput(t, 500),
		},
	}
	r := newTestResolver(t, caller)

	pools, err := r.GetPool(context.Background(), asset.WETH, asset.USDT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pools) != 1 || pools[0] != poolLow {
		t.Fatalf("expected [%s], got %v", poolLow.Hex(), pools)
	}
}

func TestGetPool_AllEmptyMeansNoPool(t *testing.T) {
	caller := &fakeCaller{
		multiResults: [][][]byte{
			getPoolBatch(t, poolLow, poolHigh, common.Address{}),
		},
		callResults: [][]byte{
			liquidityOutput(t, 0),
			liquidityOutput(t, 0),
		},
	}
	r := newTestResolver(t, caller)

	pools, err := r.GetPool(context.Background(), asset.WETH, asset.USDT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pools) != 0 {
		t.Fatalf("expected no pools, got %v", pools)
	}
}

func TestGetPool_CachesDiscovery(t *testing.T) {
	caller := &fakeCaller{
		multiResults: [][][]byte{
			getPoolBatch(t, poolLow, common.Address{}, common.Address{}),
		},
		callResults: [][]byte{
			liquidityOutput(t, 100),
		},
	}
	r := newTestResolver(t, caller)

	first, err := r.GetPool(context.Background(), asset.WETH, asset.USDT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Second lookup, reversed argument order, must come from cache.
	second, err := r.GetPool(context.Background(), asset.USDT, asset.WETH)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("expected identical cached result, got %v and %v", first, second)
	}
	if caller.multiCount != 1 || caller.callCount != 1 {
		t.Errorf("expected one discovery round trip, got %d multicalls and %d calls",
			caller.multiCount, caller.callCount)
	}
}

func poolState(t *testing.T, sqrtPriceX96 *big.Int, token0, token1 common.Address) [][]byte {
	t.Helper()
	return [][]byte{
		packOutputs(t, PoolABI, "slot0",
			sqrtPriceX96, big.NewInt(0), uint16(0), uint16(1), uint16(1), uint8(0), true),
		packOutputs(t, PoolABI, "token0", token0),
		packOutputs(t, PoolABI, "token1", token1),
	}
}

func TestGetPoolPrice_SqrtPriceMath(t *testing.T) {
	// sqrtPriceX96 == 2^96 encodes a raw price of exactly 1; with equal
	// decimals on both sides that is also the normalized price.
	sqrt := new(big.Int).Lsh(big.NewInt(1), 96)
	caller := &fakeCaller{multiResults: [][][]byte{
		poolState(t, sqrt, asset.AddrWETHEthereum, asset.AddrDAIEthereum),
	}}
	r := newTestResolver(t, caller)

	price, err := r.GetPoolPrice(context.Background(), poolLow, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", price.Price.String())
	}
	if !price.Token0.Equals(asset.WETH) || !price.Token1.Equals(asset.DAI) {
		t.Errorf("expected WETH/DAI, got %s/%s", price.Token0.Symbol(), price.Token1.Symbol())
	}
}

func TestGetPoolPrice_NormalizesDecimals(t *testing.T) {
	// Same raw price of 1, but USDT has 6 decimals, so the normalized price
	// scales by 10^(18-6).
	sqrt := new(big.Int).Lsh(big.NewInt(1), 96)
	caller := &fakeCaller{multiResults: [][][]byte{
		poolState(t, sqrt, asset.AddrWETHEthereum, asset.AddrUSDTEthereum),
	}}
	r := newTestResolver(t, caller)

	price, err := r.GetPoolPrice(context.Background(), poolLow, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Price.Equal(decimal.New(1, 12)) {
		t.Errorf("expected 1e12, got %s", price.Price.String())
	}
}

func TestGetPoolPrice_ZeroPrice(t *testing.T) {
	caller := &fakeCaller{multiResults: [][][]byte{
		poolState(t, big.NewInt(0), asset.AddrWETHEthereum, asset.AddrDAIEthereum),
	}}
	r := newTestResolver(t, caller)

	_, err := r.GetPoolPrice(context.Background(), poolLow, nil)
	if !apperror.IsCode(err, apperror.CodePoolStateError) {
		t.Fatalf("expected pool state error, got %v", err)
	}
}

func TestGetPoolPrice_UnknownToken(t *testing.T) {
	sqrt := new(big.Int).Lsh(big.NewInt(1), 96)
	caller := &fakeCaller{multiResults: [][][]byte{
		poolState(t, sqrt,
			common.HexToAddress("0x00000000000000000000000000000000DeaDBeef"), asset.AddrDAIEthereum),
	}}
	r := newTestResolver(t, caller)

	_, err := r.GetPoolPrice(context.Background(), poolLow, nil)
	if !apperror.IsCode(err, apperror.CodePoolStateError) {
		t.Fatalf("expected pool state error, got %v", err)
	}
}

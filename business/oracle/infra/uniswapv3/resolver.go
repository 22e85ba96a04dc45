// Package uniswapv3 implements the PoolResolver interface for Uniswap V3
// concentrated-liquidity pools.
package uniswapv3

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/foliotrack/chainprice/business/oracle/app"
	"github.com/foliotrack/chainprice/business/oracle/domain"
	"github.com/foliotrack/chainprice/internal/apperror"
	"github.com/foliotrack/chainprice/internal/asset"
	"github.com/foliotrack/chainprice/internal/config"
	"github.com/foliotrack/chainprice/internal/logger"
	"github.com/foliotrack/chainprice/internal/ttlcache"
)

const (
	tracerName = "uniswap-v3"
	meterName  = "uniswap-v3"

	// ProtocolName identifies this resolver.
	ProtocolName = "uniswap-v3"
)

// two192 is 2^192, the square of the Q64.96 fixed-point scale used by
// sqrtPriceX96.
var two192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

// Ensure Resolver implements PoolResolver.
var _ app.PoolResolver = (*Resolver)(nil)

// resolverMetrics holds OTEL metric instruments.
type resolverMetrics struct {
	poolLookups     metric.Int64Counter
	poolCacheHits   metric.Int64Counter
	priceReads      metric.Int64Counter
	priceReadErrors metric.Int64Counter
}

// Resolver locates and prices Uniswap V3 pools. A pair can have one pool per
// fee tier; the resolver probes the known tiers and keeps the one holding
// the most in-range liquidity. Discovery results are cached with a TTL since
// pool deployments are rare and liquidity leadership shifts slowly.
type Resolver struct {
	caller     app.ChainCaller
	factory    common.Address
	factoryABI abi.ABI
	poolABI    abi.ABI

	chainID  uint64
	registry *asset.Registry
	cache    *ttlcache.Cache[string, []common.Address]

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *resolverMetrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistry overrides the asset registry.
func WithRegistry(r *asset.Registry) Option {
	return func(res *Resolver) { res.registry = r }
}

// NewResolver creates a Uniswap V3 pool resolver.
func NewResolver(caller app.ChainCaller, cfg *config.Config, log logger.LoggerInterface, opts ...Option) (*Resolver, error) {
	factoryABI, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	poolABI, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}

	r := &Resolver{
		caller:     caller,
		factory:    cfg.Uniswap.V3FactoryAddressHex(),
		factoryABI: factoryABI,
		poolABI:    poolABI,
		chainID:    cfg.Ethereum.ChainID,
		registry:   asset.DefaultRegistry(),
		cache:      ttlcache.New[string, []common.Address](cfg.Uniswap.PoolCacheTTL),
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return r, nil
}

func (r *Resolver) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &resolverMetrics{}

	r.metrics.poolLookups, err = meter.Int64Counter(
		"uniswap_v3_pool_lookups_total",
		metric.WithDescription("Total pool discovery lookups"),
	)
	if err != nil {
		return err
	}

	r.metrics.poolCacheHits, err = meter.Int64Counter(
		"uniswap_v3_pool_cache_hits_total",
		metric.WithDescription("Pool discovery lookups served from cache"),
	)
	if err != nil {
		return err
	}

	r.metrics.priceReads, err = meter.Int64Counter(
		"uniswap_v3_price_reads_total",
		metric.WithDescription("Total pool price reads"),
	)
	if err != nil {
		return err
	}

	r.metrics.priceReadErrors, err = meter.Int64Counter(
		"uniswap_v3_price_read_errors_total",
		metric.WithDescription("Total pool price read errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// ProtocolName identifies the protocol version.
func (r *Resolver) ProtocolName() string {
	return ProtocolName
}

// GetPool probes the factory for pools at every known fee tier in one
// multicall and returns the deployed pool with the highest liquidity. The
// result, including "no pool exists", is cached per pair for the configured
// TTL.
func (r *Resolver) GetPool(ctx context.Context, token0, token1 *asset.Asset) ([]common.Address, error) {
	ctx, span := r.tracer.Start(ctx, "uniswapv3.get_pool",
		trace.WithAttributes(
			attribute.String("token0", token0.Symbol()),
			attribute.String("token1", token1.Symbol()),
		),
	)
	defer span.End()

	r.metrics.poolLookups.Add(ctx, 1)

	key := pairKey(token0.ID().Address(), token1.ID().Address())
	if pools, ok := r.cache.Get(key); ok {
		r.metrics.poolCacheHits.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		span.SetStatus(codes.Ok, "cache hit")
		return pools, nil
	}

	candidates, err := r.lookupCandidates(ctx, token0.ID().Address(), token1.ID().Address())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	best, err := r.selectByLiquidity(ctx, candidates)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.cache.Set(key, best)

	span.SetAttributes(attribute.Int("pools", len(best)))
	span.SetStatus(codes.Ok, "lookup done")
	return best, nil
}

// lookupCandidates batches getPool over the fee tiers and returns the
// deployed (non-zero) pool addresses.
func (r *Resolver) lookupCandidates(ctx context.Context, tokenA, tokenB common.Address) ([]common.Address, error) {
	calls := make([]app.ContractCall, 0, len(feeTiers))
	for _, fee := range feeTiers {
		data, err := r.factoryABI.Pack("getPool", tokenA, tokenB, big.NewInt(fee))
		if err != nil {
			return nil, fmt.Errorf("failed to encode getPool: %w", err)
		}
		calls = append(calls, app.ContractCall{To: r.factory, Data: data})
	}

	results, err := r.caller.MulticallRequireSuccess(ctx, calls, nil)
	if err != nil {
		return nil, err
	}

	candidates := make([]common.Address, 0, len(results))
	for _, raw := range results {
		outputs, err := r.factoryABI.Unpack("getPool", raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode getPool result: %w", err)
		}
		addr := outputs[0].(common.Address)
		if addr != (common.Address{}) {
			candidates = append(candidates, addr)
		}
	}
	return candidates, nil
}

// selectByLiquidity reads liquidity() from each candidate and keeps the pool
// holding strictly the most. All pools empty means no usable pool.
func (r *Resolver) selectByLiquidity(ctx context.Context, candidates []common.Address) ([]common.Address, error) {
	if len(candidates) == 0 {
		return []common.Address{}, nil
	}

	liquidityData, err := r.poolABI.Pack("liquidity")
	if err != nil {
		return nil, fmt.Errorf("failed to encode liquidity: %w", err)
	}

	var (
		best    common.Address
		bestLiq *big.Int
	)
	for i, pool := range candidates {
		raw, err := r.caller.CallContract(ctx, app.ContractCall{To: pool, Data: liquidityData}, nil)
		if err != nil {
			return nil, err
		}
		outputs, err := r.poolABI.Unpack("liquidity", raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode liquidity result: %w", err)
		}
		liq := outputs[0].(*big.Int)

		if i == 0 || liq.Cmp(bestLiq) > 0 {
			best = pool
			bestLiq = liq
		}
	}

	if bestLiq.Sign() == 0 {
		return []common.Address{}, nil
	}
	return []common.Address{best}, nil
}

// GetPoolPrice reads slot0 and token identities of the pool in a single
// multicall and returns the price of token1 in token0 units, normalized for
// decimals, at the given block (nil for latest).
func (r *Resolver) GetPoolPrice(ctx context.Context, pool common.Address, block *big.Int) (domain.PoolPrice, error) {
	ctx, span := r.tracer.Start(ctx, "uniswapv3.get_pool_price",
		trace.WithAttributes(attribute.String("pool", pool.Hex())),
	)
	defer span.End()

	r.metrics.priceReads.Add(ctx, 1)

	calls := make([]app.ContractCall, 0, 3)
	for _, method := range []string{"slot0", "token0", "token1"} {
		data, err := r.poolABI.Pack(method)
		if err != nil {
			return domain.PoolPrice{}, fmt.Errorf("failed to encode %s: %w", method, err)
		}
		calls = append(calls, app.ContractCall{To: pool, Data: data})
	}

	results, err := r.caller.MulticallRequireSuccess(ctx, calls, block)
	if err != nil {
		r.metrics.priceReadErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return domain.PoolPrice{}, err
	}

	sqrtPriceX96, err := r.unpackSqrtPrice(results[0])
	if err != nil {
		r.metrics.priceReadErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return domain.PoolPrice{}, err
	}

	token0, err := r.resolveToken(results[1], pool)
	if err != nil {
		r.metrics.priceReadErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return domain.PoolPrice{}, err
	}
	token1, err := r.resolveToken(results[2], pool)
	if err != nil {
		r.metrics.priceReadErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return domain.PoolPrice{}, err
	}

	d0 := int32(token0.Decimals())
	d1 := int32(token1.Decimals())

	sq := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	price := decimal.NewFromBigInt(sq, 0).
		Div(two192).
		Mul(decimal.New(1, d0-d1))

	if price.IsZero() {
		r.metrics.priceReadErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "zero price")
		return domain.PoolPrice{}, apperror.New(apperror.CodePoolStateError,
			apperror.WithContext(fmt.Sprintf("pool %s reports a zero price", pool.Hex())))
	}

	span.SetAttributes(
		attribute.String("token0", token0.Symbol()),
		attribute.String("token1", token1.Symbol()),
		attribute.String("price", price.String()),
	)
	span.SetStatus(codes.Ok, "price read")

	r.logger.Debug(ctx, "pool price read",
		"pool", pool.Hex(),
		"token0", token0.Symbol(),
		"token1", token1.Symbol(),
		"price", price.String(),
	)

	return domain.NewPoolPrice(price, token0, token1), nil
}

func (r *Resolver) unpackSqrtPrice(raw []byte) (*big.Int, error) {
	outputs, err := r.poolABI.Unpack("slot0", raw)
	if err != nil {
		return nil, apperror.New(apperror.CodePoolStateError,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode slot0 result"))
	}
	return outputs[0].(*big.Int), nil
}

// resolveToken maps a token0/token1 call result to a registered asset. An
// unregistered token means the pool cannot be priced safely, since decimals
// would be a guess.
func (r *Resolver) resolveToken(raw []byte, pool common.Address) (*asset.Asset, error) {
	outputs, err := r.poolABI.Unpack("token0", raw)
	if err != nil {
		return nil, apperror.New(apperror.CodePoolStateError,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode pool token address"))
	}
	addr := outputs[0].(common.Address)

	token, ok := r.registry.GetToken(r.chainID, addr)
	if !ok {
		return nil, apperror.New(apperror.CodePoolStateError,
			apperror.WithContext(fmt.Sprintf("pool %s holds unknown token %s", pool.Hex(), addr.Hex())))
	}
	if !token.DecimalsKnown() {
		return nil, apperror.New(apperror.CodePoolStateError,
			apperror.WithContext(fmt.Sprintf("token %s has unknown decimals", token.Symbol())))
	}
	return token, nil
}

// pairKey builds an order-independent cache key for a token pair.
func pairKey(a, b common.Address) string {
	if strings.Compare(a.Hex(), b.Hex()) > 0 {
		a, b = b, a
	}
	return a.Hex() + "/" + b.Hex()
}

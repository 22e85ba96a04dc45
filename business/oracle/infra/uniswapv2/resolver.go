// Package uniswapv2 implements the PoolResolver interface for Uniswap V2
// style constant-product pools.
package uniswapv2

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
)

const (
	tracerName = "uniswap-v2"
	meterName  = "uniswap-v2"

	// ProtocolName identifies this resolver.
	ProtocolName = "uniswap-v2"
)

// Ensure Resolver implements PoolResolver.
var _ app.PoolResolver = (*Resolver)(nil)

// resolverMetrics holds OTEL metric instruments.
type resolverMetrics struct {
	poolLookups      metric.Int64Counter
	priceReads       metric.Int64Counter
	priceReadErrors  metric.Int64Counter
	liquidityRejects metric.Int64Counter
}

// Resolver locates and prices Uniswap V2 pairs. Pairs whose single-side USD
// liquidity sits below the configured floor are rejected so that spam pools
// with a plausible-looking ratio cannot poison prices.
type Resolver struct {
	caller     app.ChainCaller
	factory    common.Address
	factoryABI abi.ABI
	pairABI    abi.ABI

	chainID         uint64
	registry        *asset.Registry
	usdLookup       app.USDPriceLookup
	minLiquidityUSD decimal.Decimal

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

// WithUSDLookup overrides the USD price lookup used for the liquidity floor.
func WithUSDLookup(l app.USDPriceLookup) Option {
	return func(res *Resolver) { res.usdLookup = l }
}

// NewResolver creates a Uniswap V2 pool resolver.
func NewResolver(caller app.ChainCaller, cfg *config.Config, log logger.LoggerInterface, opts ...Option) (*Resolver, error) {
	factoryABI, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	r := &Resolver{
		caller:          caller,
		factory:         cfg.Uniswap.V2FactoryAddressHex(),
		factoryABI:      factoryABI,
		pairABI:         pairABI,
		chainID:         cfg.Ethereum.ChainID,
		registry:        asset.DefaultRegistry(),
		usdLookup:       app.DefaultUSDPriceLookup(),
		minLiquidityUSD: decimal.NewFromFloat(cfg.Oracle.MinPoolLiquidityUSD),
		logger:          log,
		tracer:          otel.Tracer(tracerName),
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
		"uniswap_v2_pool_lookups_total",
		metric.WithDescription("Total getPair lookups"),
	)
	if err != nil {
		return err
	}

	r.metrics.priceReads, err = meter.Int64Counter(
		"uniswap_v2_price_reads_total",
		metric.WithDescription("Total pair price reads"),
	)
	if err != nil {
		return err
	}

	r.metrics.priceReadErrors, err = meter.Int64Counter(
		"uniswap_v2_price_read_errors_total",
		metric.WithDescription("Total pair price read errors"),
	)
	if err != nil {
		return err
	}

	r.metrics.liquidityRejects, err = meter.Int64Counter(
		"uniswap_v2_liquidity_rejects_total",
		metric.WithDescription("Pairs rejected for insufficient USD liquidity"),
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

// GetPool returns the canonical pair address for the token pair via the
// factory's getPair. The result is the zero address when no pair exists;
// callers filter it out.
func (r *Resolver) GetPool(ctx context.Context, token0, token1 *asset.Asset) ([]common.Address, error) {
	ctx, span := r.tracer.Start(ctx, "uniswapv2.get_pool",
		trace.WithAttributes(
			attribute.String("token0", token0.Symbol()),
			attribute.String("token1", token1.Symbol()),
		),
	)
	defer span.End()

	r.metrics.poolLookups.Add(ctx, 1)

	callData, err := r.factoryABI.Pack("getPair", token0.ID().Address(), token1.ID().Address())
	if err != nil {
		return nil, fmt.Errorf("failed to encode getPair: %w", err)
	}

	raw, err := r.caller.CallContract(ctx, app.ContractCall{To: r.factory, Data: callData}, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	outputs, err := r.factoryABI.Unpack("getPair", raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to decode getPair result: %w", err)
	}
	pair := outputs[0].(common.Address)

	span.SetAttributes(attribute.String("pair", pair.Hex()))
	span.SetStatus(codes.Ok, "lookup done")
	return []common.Address{pair}, nil
}

// GetPoolPrice reads reserves and token identities of the pair in a single
// multicall and returns the price of token1 in token0 units, normalized for
// decimals, at the given block (nil for latest).
func (r *Resolver) GetPoolPrice(ctx context.Context, pool common.Address, block *big.Int) (domain.PoolPrice, error) {
	ctx, span := r.tracer.Start(ctx, "uniswapv2.get_pool_price",
		trace.WithAttributes(attribute.String("pool", pool.Hex())),
	)
	defer span.End()

	r.metrics.priceReads.Add(ctx, 1)

	calls, err := r.packPriceCalls(pool)
	if err != nil {
		return domain.PoolPrice{}, err
	}

	results, err := r.caller.MulticallRequireSuccess(ctx, calls, block)
	if err != nil {
		r.metrics.priceReadErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return domain.PoolPrice{}, err
	}

	reserve0, reserve1, err := r.unpackReserves(results[0])
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

	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		r.metrics.priceReadErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "zero reserves")
		return domain.PoolPrice{}, apperror.New(apperror.CodePoolStateError,
			apperror.WithContext(fmt.Sprintf("pair %s has zero reserves", pool.Hex())))
	}

	if err := r.checkLiquidityFloor(ctx, pool, token0, reserve0); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.PoolPrice{}, err
	}
	if err := r.checkLiquidityFloor(ctx, pool, token1, reserve1); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.PoolPrice{}, err
	}

	d0 := int32(token0.Decimals())
	d1 := int32(token1.Decimals())

	price := decimal.NewFromBigInt(reserve1, 0).
		Div(decimal.NewFromBigInt(reserve0, 0)).
		Mul(decimal.New(1, d0-d1))

	span.SetAttributes(
		attribute.String("token0", token0.Symbol()),
		attribute.String("token1", token1.Symbol()),
		attribute.String("price", price.String()),
	)
	span.SetStatus(codes.Ok, "price read")

	r.logger.Debug(ctx, "pair price read",
		"pool", pool.Hex(),
		"token0", token0.Symbol(),
		"token1", token1.Symbol(),
		"price", price.String(),
	)

	return domain.NewPoolPrice(price, token0, token1), nil
}

// packPriceCalls builds the [getReserves, token0, token1] multicall batch.
func (r *Resolver) packPriceCalls(pool common.Address) ([]app.ContractCall, error) {
	calls := make([]app.ContractCall, 0, 3)
	for _, method := range []string{"getReserves", "token0", "token1"} {
		data, err := r.pairABI.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", method, err)
		}
		calls = append(calls, app.ContractCall{To: pool, Data: data})
	}
	return calls, nil
}

func (r *Resolver) unpackReserves(raw []byte) (*big.Int, *big.Int, error) {
	outputs, err := r.pairABI.Unpack("getReserves", raw)
	if err != nil {
		return nil, nil, apperror.New(apperror.CodePoolStateError,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode getReserves result"))
	}
	return outputs[0].(*big.Int), outputs[1].(*big.Int), nil
}

// resolveToken maps a token0/token1 call result to a registered asset. An
// unregistered token means the pool cannot be priced safely, since decimals
// would be a guess.
func (r *Resolver) resolveToken(raw []byte, pool common.Address) (*asset.Asset, error) {
	outputs, err := r.pairABI.Unpack("token0", raw)
	if err != nil {
		return nil, apperror.New(apperror.CodePoolStateError,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode pair token address"))
	}
	addr := outputs[0].(common.Address)

	token, ok := r.registry.GetToken(r.chainID, addr)
	if !ok {
		return nil, apperror.New(apperror.CodePoolStateError,
			apperror.WithContext(fmt.Sprintf("pair %s holds unknown token %s", pool.Hex(), addr.Hex())))
	}
	if !token.DecimalsKnown() {
		return nil, apperror.New(apperror.CodePoolStateError,
			apperror.WithContext(fmt.Sprintf("token %s has unknown decimals", token.Symbol())))
	}
	return token, nil
}

// checkLiquidityFloor rejects the pair when one side's USD value sits below
// the configured floor. Tokens with no known USD price are not checked; the
// lookup must never fall back on-chain or pricing would recurse.
func (r *Resolver) checkLiquidityFloor(ctx context.Context, pool common.Address, token *asset.Asset, reserve *big.Int) error {
	usdPrice, err := r.usdLookup.FindUSDPrice(ctx, token, true)
	if err != nil {
		return apperror.Wrap(err, apperror.CodePoolStateError,
			fmt.Sprintf("usd price lookup failed for %s", token.Symbol()))
	}
	if usdPrice.IsZero() {
		return nil
	}

	sideUSD := asset.NewAmount(token, reserve).ToDecimal().Mul(usdPrice)
	if sideUSD.LessThan(r.minLiquidityUSD) {
		r.metrics.liquidityRejects.Add(ctx, 1)
		return apperror.New(apperror.CodePoolStateError,
			apperror.WithContext(fmt.Sprintf(
				"pair %s side %s holds %s USD, below the %s floor",
				pool.Hex(), token.Symbol(), sideUSD.StringFixed(2), r.minLiquidityUSD.StringFixed(0),
			)))
	}
	return nil
}

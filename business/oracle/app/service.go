package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/foliotrack/chainprice/business/oracle/domain"
	"github.com/foliotrack/chainprice/internal/apperror"
	"github.com/foliotrack/chainprice/internal/asset"
	"github.com/foliotrack/chainprice/internal/logger"
)

const (
	tracerName = "oracle"
	meterName  = "oracle"
)

// oracleMetrics holds OTEL metric instruments.
type oracleMetrics struct {
	queriesTotal metric.Int64Counter
	queryLatency metric.Float64Histogram
	queryErrors  metric.Int64Counter
	emptyRoutes  metric.Int64Counter
}

// Oracle resolves prices between ERC20 tokens by walking AMM pools, routing
// through bridge assets when no direct pool exists.
type Oracle struct {
	name          string
	resolver      PoolResolver
	registry      *asset.Registry
	routingAssets []*asset.Asset
	wrappedNative *asset.Asset
	usdStable     *asset.Asset

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *oracleMetrics
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithRoutingAssets overrides the bridge assets probed during routing. Order
// matters: routing commits to the first bridge that yields a pool.
func WithRoutingAssets(assets []*asset.Asset) Option {
	return func(o *Oracle) { o.routingAssets = assets }
}

// WithWrappedNative overrides the wrapped form substituted for the chain's
// native asset.
func WithWrappedNative(a *asset.Asset) Option {
	return func(o *Oracle) { o.wrappedNative = a }
}

// WithUSDStable overrides the stablecoin substituted for fiat USD in
// current-price queries.
func WithUSDStable(a *asset.Asset) Option {
	return func(o *Oracle) { o.usdStable = a }
}

// WithLogger sets the logger.
func WithLogger(log logger.LoggerInterface) Option {
	return func(o *Oracle) { o.logger = log }
}

// New creates an Oracle on top of the given pool resolver.
func New(resolver PoolResolver, registry *asset.Registry, opts ...Option) (*Oracle, error) {
	o := &Oracle{
		name:          resolver.ProtocolName(),
		resolver:      resolver,
		registry:      registry,
		routingAssets: asset.DefaultRoutingAssets(),
		wrappedNative: asset.WETH,
		usdStable:     asset.USDC,
		logger:        logger.NewNop(),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return o, nil
}

func (o *Oracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &oracleMetrics{}

	o.metrics.queriesTotal, err = meter.Int64Counter(
		"oracle_queries_total",
		metric.WithDescription("Total price queries"),
	)
	if err != nil {
		return err
	}

	o.metrics.queryLatency, err = meter.Float64Histogram(
		"oracle_query_latency_ms",
		metric.WithDescription("Price query latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	o.metrics.queryErrors, err = meter.Int64Counter(
		"oracle_query_errors_total",
		metric.WithDescription("Total price query errors"),
	)
	if err != nil {
		return err
	}

	o.metrics.emptyRoutes, err = meter.Int64Counter(
		"oracle_empty_routes_total",
		metric.WithDescription("Queries that found no pool route"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetPrice returns the price of fromAsset in toAsset units at the given block
// (nil means latest). Native assets are priced through their wrapped form.
// When no pool route connects the pair the returned price has a zero rate;
// that is a valid answer, not an error.
func (o *Oracle) GetPrice(ctx context.Context, fromAsset, toAsset *asset.Asset, block *big.Int) (asset.Price, error) {
	ctx, span := o.tracer.Start(ctx, "oracle.get_price",
		trace.WithAttributes(
			attribute.String("protocol", o.name),
			attribute.String("from", fromAsset.Symbol()),
			attribute.String("to", toAsset.Symbol()),
		),
	)
	defer span.End()

	start := time.Now()
	o.metrics.queriesTotal.Add(ctx, 1)

	fromToken := o.substituteNative(fromAsset)
	toToken := o.substituteNative(toAsset)

	// The substitution can collapse the pair, e.g. ETH priced in WETH.
	if fromToken.Equals(toToken) {
		span.SetStatus(codes.Ok, "same token")
		return asset.NewPriceNow(fromAsset, toAsset, decimal.New(1, 0)), nil
	}

	if err := o.checkSupported(fromToken); err != nil {
		o.metrics.queryErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return asset.Price{}, err
	}
	if err := o.checkSupported(toToken); err != nil {
		o.metrics.queryErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return asset.Price{}, err
	}

	route, err := o.FindRoute(ctx, fromToken, toToken)
	if err != nil {
		o.metrics.queryErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return asset.Price{}, err
	}
	if route.IsEmpty() {
		o.metrics.emptyRoutes.Add(ctx, 1)
		o.logger.Debug(ctx, "no route found",
			"protocol", o.name,
			"from", fromToken.Symbol(),
			"to", toToken.Symbol(),
		)
		span.SetStatus(codes.Ok, "no route")
		return asset.NewPriceNow(fromAsset, toAsset, decimal.Zero), nil
	}

	hops := make([]domain.PoolPrice, 0, len(route))
	for _, pool := range route {
		hop, err := o.resolver.GetPoolPrice(ctx, pool, block)
		if err != nil {
			o.metrics.queryErrors.Add(ctx, 1)
			span.SetStatus(codes.Error, err.Error())
			return asset.Price{}, err
		}
		hops = append(hops, hop)
	}

	rate := composeRoutePrice(hops, fromToken, toToken)

	latency := float64(time.Since(start).Milliseconds())
	o.metrics.queryLatency.Record(ctx, latency)

	span.SetAttributes(
		attribute.Int("route_hops", len(route)),
		attribute.String("rate", rate.String()),
	)
	span.SetStatus(codes.Ok, "price resolved")

	o.logger.Debug(ctx, "price resolved",
		"protocol", o.name,
		"from", fromToken.Symbol(),
		"to", toToken.Symbol(),
		"hops", len(route),
		"rate", rate.String(),
	)

	return asset.NewPriceNow(fromAsset, toAsset, rate), nil
}

// QueryCurrentPrice returns the latest price of fromAsset in toAsset units.
// Fiat USD on either side is answered through USDC; the destination side wins
// when both are USD. The boolean mirrors the usual oracle signature and is
// always false here: pool reads are live, never served from a price cache.
func (o *Oracle) QueryCurrentPrice(ctx context.Context, fromAsset, toAsset *asset.Asset) (asset.Price, bool, error) {
	if toAsset.ID().Equals(asset.USD.ID()) {
		toAsset = o.usdStable
	} else if fromAsset.ID().Equals(asset.USD.ID()) {
		fromAsset = o.usdStable
	}

	price, err := o.GetPrice(ctx, fromAsset, toAsset, nil)
	return price, false, err
}

// ProtocolName identifies the underlying AMM protocol.
func (o *Oracle) ProtocolName() string {
	return o.name
}

// substituteNative maps the chain's native asset to its wrapped ERC20 form,
// which is what the pools actually hold.
func (o *Oracle) substituteNative(a *asset.Asset) *asset.Asset {
	if a.ID().IsNative() {
		return o.wrappedNative
	}
	return a
}

// checkSupported rejects anything that is not a registered ERC20 token.
// Pools cannot price fiat, NFTs or assets with no on-chain address.
func (o *Oracle) checkSupported(a *asset.Asset) error {
	if !a.ID().IsToken() || a.Standard() != asset.StandardERC20 {
		return apperror.New(apperror.CodeUnsupportedAsset,
			apperror.WithContext(fmt.Sprintf("%s is not an ERC20 token", a.Symbol())))
	}
	if !o.registry.Has(a.ID()) {
		return apperror.New(apperror.CodeUnsupportedAsset,
			apperror.WithContext(fmt.Sprintf("%s is not a registered asset", a.Symbol())))
	}
	return nil
}

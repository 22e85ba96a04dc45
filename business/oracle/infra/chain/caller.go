// Package chain provides rate-limited, breaker-protected read access to an
// Ethereum node, including batched reads through the Multicall3 contract.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/foliotrack/chainprice/business/oracle/app"
	"github.com/foliotrack/chainprice/internal/apperror"
	"github.com/foliotrack/chainprice/internal/circuitbreaker"
	"github.com/foliotrack/chainprice/internal/config"
	"github.com/foliotrack/chainprice/internal/logger"
	"github.com/foliotrack/chainprice/internal/ratelimit"
)

const (
	tracerName = "chain"
	meterName  = "chain"
)

// Ensure Caller implements ChainCaller.
var _ app.ChainCaller = (*Caller)(nil)

// EthCaller is the slice of the ethclient API the caller needs. Satisfied by
// *ethclient.Client.
type EthCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// callerMetrics holds OTEL metric instruments.
type callerMetrics struct {
	callsTotal  metric.Int64Counter
	callErrors  metric.Int64Counter
	callLatency metric.Float64Histogram
	batchSize   metric.Int64Counter
}

// Caller executes read-only contract calls against an Ethereum node.
type Caller struct {
	client       EthCaller
	multicall    common.Address
	multicallABI abi.ABI

	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *callerMetrics
}

// NewCaller creates a Caller against the given node client.
func NewCaller(client EthCaller, cfg config.EthereumConfig, log logger.LoggerInterface) (*Caller, error) {
	parsedABI, err := abi.JSON(strings.NewReader(Multicall3ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse multicall ABI: %w", err)
	}

	c := &Caller{
		client:       client,
		multicall:    cfg.MulticallAddressHex(),
		multicallABI: parsedABI,
		limiter:      ratelimit.New(cfg.RequestsPerSecond, cfg.RequestBurst),
		logger:       log,
		tracer:       otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("ethereum-rpc")
	c.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return c, nil
}

func (c *Caller) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &callerMetrics{}

	c.metrics.callsTotal, err = meter.Int64Counter(
		"chain_calls_total",
		metric.WithDescription("Total eth_call requests"),
	)
	if err != nil {
		return err
	}

	c.metrics.callErrors, err = meter.Int64Counter(
		"chain_call_errors_total",
		metric.WithDescription("Total eth_call errors"),
	)
	if err != nil {
		return err
	}

	c.metrics.callLatency, err = meter.Float64Histogram(
		"chain_call_latency_ms",
		metric.WithDescription("eth_call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.batchSize, err = meter.Int64Counter(
		"chain_multicall_subcalls_total",
		metric.WithDescription("Total sub-calls batched through multicall"),
	)
	if err != nil {
		return err
	}

	return nil
}

// CallContract executes a single eth_call at the given block (nil for
// latest), going through the rate limiter and circuit breaker.
func (c *Caller) CallContract(ctx context.Context, call app.ContractCall, block *big.Int) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "chain.call_contract",
		trace.WithAttributes(attribute.String("target", call.To.Hex())),
	)
	defer span.End()

	start := time.Now()
	c.metrics.callsTotal.Add(ctx, 1)

	result, err := c.execute(ctx, call.To, call.Data, block)

	c.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		c.metrics.callErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "call succeeded")
	return result, nil
}

// MulticallRequireSuccess batches the calls into a single Multicall3
// tryAggregate round trip with requireSuccess set, so any reverting sub-call
// fails the whole batch.
func (c *Caller) MulticallRequireSuccess(ctx context.Context, calls []app.ContractCall, block *big.Int) ([][]byte, error) {
	ctx, span := c.tracer.Start(ctx, "chain.multicall",
		trace.WithAttributes(attribute.Int("calls", len(calls))),
	)
	defer span.End()

	if len(calls) == 0 {
		return nil, nil
	}

	start := time.Now()
	c.metrics.callsTotal.Add(ctx, 1)
	c.metrics.batchSize.Add(ctx, int64(len(calls)))

	packed := make([]multicallCall, len(calls))
	for i, call := range calls {
		packed[i] = multicallCall{Target: call.To, CallData: call.Data}
	}

	callData, err := c.multicallABI.Pack("tryAggregate", true, packed)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to encode multicall: %w", err)
	}

	raw, err := c.execute(ctx, c.multicall, callData, block)

	c.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		c.metrics.callErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	outputs, err := c.multicallABI.Unpack("tryAggregate", raw)
	if err != nil {
		c.metrics.callErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperror.New(apperror.CodeMulticallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode multicall result"))
	}

	results := *abi.ConvertType(outputs[0], new([]multicallResult)).(*[]multicallResult)
	if len(results) != len(calls) {
		c.metrics.callErrors.Add(ctx, 1)
		return nil, apperror.New(apperror.CodeMulticallFailed,
			apperror.WithContext(fmt.Sprintf("expected %d results, got %d", len(calls), len(results))))
	}

	returnData := make([][]byte, len(results))
	for i, res := range results {
		if !res.Success {
			c.metrics.callErrors.Add(ctx, 1)
			span.SetStatus(codes.Error, "sub-call reverted")
			return nil, apperror.New(apperror.CodeMulticallFailed,
				apperror.WithContext(fmt.Sprintf("sub-call %d to %s reverted", i, calls[i].To.Hex())))
		}
		returnData[i] = res.ReturnData
	}

	span.SetStatus(codes.Ok, "multicall succeeded")
	return returnData, nil
}

// execute runs one eth_call through the rate limiter and circuit breaker.
func (c *Caller) execute(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext("rate limiter wait aborted"))
	}

	result, err := c.cb.Execute(func() ([]byte, error) {
		return c.client.CallContract(ctx, ethereum.CallMsg{
			To:   &to,
			Data: data,
		}, block)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("eth_call to %s failed", to.Hex())))
	}
	return result, nil
}

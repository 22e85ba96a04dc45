// Package main is the entry point for the chainprice on-chain price oracle.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	"github.com/foliotrack/chainprice/business/oracle/app"
	"github.com/foliotrack/chainprice/business/oracle/infra/chain"
	"github.com/foliotrack/chainprice/business/oracle/infra/uniswapv2"
	"github.com/foliotrack/chainprice/business/oracle/infra/uniswapv3"
	"github.com/foliotrack/chainprice/internal/apm"
	"github.com/foliotrack/chainprice/internal/asset"
	"github.com/foliotrack/chainprice/internal/config"
	"github.com/foliotrack/chainprice/internal/health"
	"github.com/foliotrack/chainprice/internal/logger"
	"github.com/foliotrack/chainprice/internal/metrics"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	fromSymbol := flag.String("from", "ETH", "Asset to price")
	toSymbol := flag.String("to", "USD", "Asset to price in")
	protocol := flag.String("protocol", "v3", "AMM protocol to query (v2|v3)")
	blockNum := flag.Int64("block", 0, "Block number to price at (0 for latest)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chainprice %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *fromSymbol, *toSymbol, *protocol, *blockNum); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, fromSymbol, toSymbol, protocol string, blockNum int64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name)
	defer log.Sync()

	log.Info(ctx, "starting chainprice",
		"version", version,
		"environment", cfg.App.Environment,
	)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(apm.WithProvider(apm.OTLPGRPCProvider, log))
		log.Info(ctx, "tracing initialized", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer healthServer.Stop(ctx)

	client, err := ethclient.DialContext(ctx, cfg.Ethereum.HTTPURL)
	if err != nil {
		return fmt.Errorf("failed to connect to ethereum node: %w", err)
	}
	defer client.Close()

	healthServer.RegisterCheck("ethereum", func(ctx context.Context) (bool, string) {
		if _, err := client.BlockNumber(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})

	caller, err := chain.NewCaller(client, cfg.Ethereum, log)
	if err != nil {
		return fmt.Errorf("failed to create chain caller: %w", err)
	}

	registry := asset.DefaultRegistry()

	var resolver app.PoolResolver
	switch strings.ToLower(protocol) {
	case "v2":
		resolver, err = uniswapv2.NewResolver(caller, cfg, log, uniswapv2.WithRegistry(registry))
	case "v3":
		resolver, err = uniswapv3.NewResolver(caller, cfg, log, uniswapv3.WithRegistry(registry))
	default:
		return fmt.Errorf("unknown protocol %q, expected v2 or v3", protocol)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s resolver: %w", protocol, err)
	}

	oracle, err := app.New(resolver, registry, app.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create oracle: %w", err)
	}

	fromAsset, err := lookupAsset(registry, fromSymbol, cfg.Ethereum.ChainID)
	if err != nil {
		return err
	}
	toAsset, err := lookupAsset(registry, toSymbol, cfg.Ethereum.ChainID)
	if err != nil {
		return err
	}

	var price asset.Price
	if blockNum > 0 {
		price, err = oracle.GetPrice(ctx, fromAsset, toAsset, big.NewInt(blockNum))
	} else {
		price, _, err = oracle.QueryCurrentPrice(ctx, fromAsset, toAsset)
	}
	if err != nil {
		return fmt.Errorf("price query failed: %w", err)
	}

	if price.IsZero() {
		log.Warn(ctx, "no liquidity path found",
			"from", fromAsset.Symbol(),
			"to", toAsset.Symbol(),
			"protocol", oracle.ProtocolName(),
		)
	}

	fmt.Printf("%s/%s = %s (%s)\n", fromAsset.Symbol(), toAsset.Symbol(), price.Rate().String(), oracle.ProtocolName())
	return nil
}

// lookupAsset resolves a ticker to an asset, preferring the configured chain.
// The same ticker can be registered on multiple chains.
func lookupAsset(registry *asset.Registry, symbol string, chainID uint64) (*asset.Asset, error) {
	candidates := registry.GetBySymbol(symbol)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("unknown asset %q", symbol)
	}
	for _, a := range candidates {
		if a.ID().ChainID() == chainID || a.ID().IsFiat() {
			return a, nil
		}
	}
	return candidates[0], nil
}

// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Uniswap   UniswapConfig   `mapstructure:"uniswap"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node and call-client configuration.
type EthereumConfig struct {
	HTTPURL           string  `mapstructure:"http_url"`
	ChainID           uint64  `mapstructure:"chain_id"`
	MulticallAddress  string  `mapstructure:"multicall_address"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	RequestBurst      int     `mapstructure:"request_burst"`
}

// MulticallAddressHex returns the Multicall3 address as common.Address.
func (c *EthereumConfig) MulticallAddressHex() common.Address {
	return common.HexToAddress(c.MulticallAddress)
}

// UniswapConfig holds Uniswap factory addresses and pool discovery tuning.
type UniswapConfig struct {
	V2FactoryAddress string        `mapstructure:"v2_factory_address"`
	V3FactoryAddress string        `mapstructure:"v3_factory_address"`
	PoolCacheTTL     time.Duration `mapstructure:"pool_cache_ttl"`
}

// V2FactoryAddressHex returns the V2 factory address as common.Address.
func (c *UniswapConfig) V2FactoryAddressHex() common.Address {
	return common.HexToAddress(c.V2FactoryAddress)
}

// V3FactoryAddressHex returns the V3 factory address as common.Address.
func (c *UniswapConfig) V3FactoryAddressHex() common.Address {
	return common.HexToAddress(c.V3FactoryAddress)
}

// OracleConfig holds price oracle tuning.
type OracleConfig struct {
	// MinPoolLiquidityUSD is the single-side USD floor below which a
	// constant-product pool is rejected as spam.
	MinPoolLiquidityUSD float64 `mapstructure:"min_pool_liquidity_usd"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CHAINPRICE")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine, env vars and defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "CHAINPRICE_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "CHAINPRICE_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "CHAINPRICE_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("ethereum.http_url", "CHAINPRICE_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "CHAINPRICE_ETH_CHAIN_ID", "ETH_CHAIN_ID")
	v.BindEnv("ethereum.multicall_address", "CHAINPRICE_MULTICALL_ADDRESS")

	v.BindEnv("uniswap.v2_factory_address", "CHAINPRICE_UNISWAP_V2_FACTORY")
	v.BindEnv("uniswap.v3_factory_address", "CHAINPRICE_UNISWAP_V3_FACTORY")

	v.BindEnv("oracle.min_pool_liquidity_usd", "CHAINPRICE_MIN_POOL_LIQUIDITY_USD")

	v.BindEnv("telemetry.enabled", "CHAINPRICE_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "CHAINPRICE_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "CHAINPRICE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "chainprice")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.multicall_address", "0xcA11bde05977b3631167028862bE2a173976CA11")
	v.SetDefault("ethereum.requests_per_second", 10.0)
	v.SetDefault("ethereum.request_burst", 5)

	// Uniswap mainnet factories
	v.SetDefault("uniswap.v2_factory_address", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	v.SetDefault("uniswap.v3_factory_address", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	v.SetDefault("uniswap.pool_cache_ttl", "10m")

	v.SetDefault("oracle.min_pool_liquidity_usd", 5000)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "chainprice")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if !common.IsHexAddress(c.Ethereum.MulticallAddress) {
		return fmt.Errorf("invalid ethereum.multicall_address: %s", c.Ethereum.MulticallAddress)
	}
	if !common.IsHexAddress(c.Uniswap.V2FactoryAddress) {
		return fmt.Errorf("invalid uniswap.v2_factory_address: %s", c.Uniswap.V2FactoryAddress)
	}
	if !common.IsHexAddress(c.Uniswap.V3FactoryAddress) {
		return fmt.Errorf("invalid uniswap.v3_factory_address: %s", c.Uniswap.V3FactoryAddress)
	}
	if c.Oracle.MinPoolLiquidityUSD < 0 {
		return fmt.Errorf("oracle.min_pool_liquidity_usd cannot be negative")
	}
	return nil
}

package config

import (
	"testing"
)

func TestLoad_RequiresNodeURL(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error without ethereum.http_url")
	}
}

func TestLoad_DefaultsFromEnv(t *testing.T) {
	t.Setenv("CHAINPRICE_ETH_HTTP_URL", "http://localhost:8545")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ethereum.ChainID != 1 {
		t.Errorf("expected mainnet default, got %d", cfg.Ethereum.ChainID)
	}
	if cfg.Ethereum.MulticallAddress != "0xcA11bde05977b3631167028862bE2a173976CA11" {
		t.Errorf("unexpected multicall default: %s", cfg.Ethereum.MulticallAddress)
	}
	if cfg.Oracle.MinPoolLiquidityUSD != 5000 {
		t.Errorf("expected 5000 USD liquidity floor, got %f", cfg.Oracle.MinPoolLiquidityUSD)
	}
	if cfg.Uniswap.PoolCacheTTL.Minutes() != 10 {
		t.Errorf("expected 10m pool cache TTL, got %s", cfg.Uniswap.PoolCacheTTL)
	}
}

func TestValidate_RejectsBadAddress(t *testing.T) {
	t.Setenv("CHAINPRICE_ETH_HTTP_URL", "http://localhost:8545")
	t.Setenv("CHAINPRICE_UNISWAP_V2_FACTORY", "not-an-address")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for malformed factory address")
	}
}

package price

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	WETHAddress string        `yaml:"weth_address"`
	USDAddress  string        `yaml:"usd_address"`
	FeeTiers    []uint32      `yaml:"fee_tiers"`
	PriceTTL    time.Duration `yaml:"price_ttl"`
	BundleTTL   time.Duration `yaml:"bundle_ttl"`
}

var DefaultConfig = Config{
	WETHAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	USDAddress:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	FeeTiers:    []uint32{500, 3000, 10000},
	PriceTTL:    15 * time.Minute,
	BundleTTL:   15 * time.Minute,
}

func (cfg Config) Validate() error {
	if !common.IsHexAddress(cfg.WETHAddress) {
		return fmt.Errorf("'weth_address' is not a valid address: %q", cfg.WETHAddress)
	}
	if !common.IsHexAddress(cfg.USDAddress) {
		return fmt.Errorf("'usd_address' is not a valid address: %q", cfg.USDAddress)
	}
	if len(cfg.FeeTiers) == 0 {
		return fmt.Errorf("'fee_tiers' is empty")
	}
	if cfg.PriceTTL < time.Second {
		return fmt.Errorf("'price_ttl' must be at least 1s")
	}
	if cfg.BundleTTL <= 0 {
		return fmt.Errorf("'bundle_ttl' must be positive")
	}
	return nil
}

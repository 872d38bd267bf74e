package pool

import (
	"fmt"
	"time"
)

type Config struct {
	LiquidityTTL time.Duration `yaml:"liquidity_ttl"`
	Slot0TTL     time.Duration `yaml:"slot0_ttl"`
}

var DefaultConfig = Config{
	LiquidityTTL: 6 * time.Hour,
	Slot0TTL:     15 * time.Minute,
}

func (cfg Config) Validate() error {
	if cfg.LiquidityTTL <= 0 {
		return fmt.Errorf("'liquidity_ttl' must be positive")
	}
	if cfg.Slot0TTL <= 0 {
		return fmt.Errorf("'slot0_ttl' must be positive")
	}
	return nil
}

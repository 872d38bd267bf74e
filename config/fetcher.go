package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var DefaultFetcherConfig = FetcherConfig{
	BlockData:     DefaultBlockDataConfig,
	ChunkSize:     2000,
	Confirmations: 12,
	PollInterval:  12 * time.Second,
	Concurrency:   8,
	Log:           zap.NewProductionConfig(),
}

type FetcherConfig struct {
	BlockData     BlockDataConfig `yaml:"block_data"`
	RPCURL        string          `yaml:"rpc_url"`
	SteleAddress  string          `yaml:"stele_address"`
	ChunkSize     uint64          `yaml:"chunk_size"`
	Confirmations uint64          `yaml:"confirmations"`
	PollInterval  time.Duration   `yaml:"poll_interval"`
	Concurrency   int             `yaml:"concurrency"`
	Log           zap.Config      `yaml:"log"`
}

func (cfg FetcherConfig) Validate() error {
	if err := cfg.BlockData.Validate(); err != nil {
		return fmt.Errorf("validate 'block_data' field: %w", err)
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("'rpc_url' is required")
	}
	if !common.IsHexAddress(cfg.SteleAddress) {
		return fmt.Errorf("'stele_address' is not a valid address: %q", cfg.SteleAddress)
	}
	if cfg.ChunkSize == 0 {
		return fmt.Errorf("'chunk_size' must be positive")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("'poll_interval' must be positive")
	}
	if cfg.Concurrency <= 0 {
		return fmt.Errorf("'concurrency' must be positive")
	}
	return nil
}

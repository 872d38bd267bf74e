package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/service/oracle"
	"github.com/b-harvest/stele-backend/service/pool"
	"github.com/b-harvest/stele-backend/service/price"
	"github.com/b-harvest/stele-backend/service/rankcache"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/service/token"
)

var DefaultIndexerConfig = IndexerConfig{
	BlockData: DefaultBlockDataConfig,
	Store:     store.DefaultConfig,
	Oracle:    oracle.DefaultConfig,
	Token:     token.DefaultConfig,
	Pool:      pool.DefaultConfig,
	Price:     price.DefaultConfig,
	RankCache: rankcache.DefaultConfig,
	MongoDB:   DefaultMongoDBConfig,
	Log:       zap.NewProductionConfig(),
}

type IndexerConfig struct {
	BlockData BlockDataConfig  `yaml:"block_data"`
	Store     store.Config     `yaml:"store"`
	Oracle    oracle.Config    `yaml:"oracle"`
	Token     token.Config     `yaml:"token"`
	Pool      pool.Config      `yaml:"pool"`
	Price     price.Config     `yaml:"price"`
	RankCache rankcache.Config `yaml:"rank_cache"`
	MongoDB   MongoDBConfig    `yaml:"mongodb"`
	// Redis is optional. Rankings are only published when it is set.
	Redis RedisConfig `yaml:"redis"`
	Log   zap.Config  `yaml:"log"`
}

func (cfg IndexerConfig) Validate() error {
	if err := cfg.BlockData.Validate(); err != nil {
		return fmt.Errorf("validate 'block_data' field: %w", err)
	}
	if err := cfg.Store.Validate(); err != nil {
		return fmt.Errorf("validate 'store' field: %w", err)
	}
	if err := cfg.Oracle.Validate(); err != nil {
		return fmt.Errorf("validate 'oracle' field: %w", err)
	}
	if err := cfg.Token.Validate(); err != nil {
		return fmt.Errorf("validate 'token' field: %w", err)
	}
	if err := cfg.Pool.Validate(); err != nil {
		return fmt.Errorf("validate 'pool' field: %w", err)
	}
	if err := cfg.Price.Validate(); err != nil {
		return fmt.Errorf("validate 'price' field: %w", err)
	}
	if cfg.Redis.URI != "" {
		if err := cfg.RankCache.Validate(); err != nil {
			return fmt.Errorf("validate 'rank_cache' field: %w", err)
		}
	}
	return nil
}

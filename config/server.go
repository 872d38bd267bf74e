package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/service/rankcache"
	"github.com/b-harvest/stele-backend/service/store"
)

var DefaultServerConfig = ServerConfig{
	Debug:            false,
	BindAddr:         "0.0.0.0:8080",
	CacheLoadTimeout: 10 * time.Second,
	Store:            store.DefaultConfig,
	RankCache:        rankcache.DefaultConfig,
	MongoDB:          DefaultMongoDBConfig,
	Redis:            DefaultRedisConfig,
	Log:              zap.NewProductionConfig(),
}

type ServerConfig struct {
	Debug            bool             `yaml:"debug"`
	BindAddr         string           `yaml:"bind_addr"`
	CacheLoadTimeout time.Duration    `yaml:"cache_load_timeout"`
	Store            store.Config     `yaml:"store"`
	RankCache        rankcache.Config `yaml:"rank_cache"`
	MongoDB          MongoDBConfig    `yaml:"mongodb"`
	Redis            RedisConfig      `yaml:"redis"`
	Log              zap.Config       `yaml:"log"`
}

func (cfg ServerConfig) Validate() error {
	if cfg.BindAddr == "" {
		return fmt.Errorf("'bind_addr' is required")
	}
	if cfg.Redis.URI == "" {
		return fmt.Errorf("'redis.uri' is required")
	}
	if err := cfg.Store.Validate(); err != nil {
		return fmt.Errorf("validate 'store' field: %w", err)
	}
	if err := cfg.RankCache.Validate(); err != nil {
		return fmt.Errorf("validate 'rank_cache' field: %w", err)
	}
	return nil
}

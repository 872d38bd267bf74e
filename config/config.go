package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

var DefaultConfig = Config{
	Indexer: DefaultIndexerConfig,
	Fetcher: DefaultFetcherConfig,
	Server:  DefaultServerConfig,
}

type Config struct {
	Indexer IndexerConfig `yaml:"indexer"`
	Fetcher FetcherConfig `yaml:"fetcher"`
	Server  ServerConfig  `yaml:"server"`
}

func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg := DefaultConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var DefaultMongoDBConfig = MongoDBConfig{
	URI: "mongodb://mongo",
}

type MongoDBConfig struct {
	URI string `yaml:"uri"`
}

var DefaultRedisConfig = RedisConfig{
	URI: "redis://redis",
}

type RedisConfig struct {
	URI string `yaml:"uri"`
}

var DefaultBlockDataConfig = BlockDataConfig{
	Filename:        "%08d/%d.json",
	BucketSize:      10000,
	WaitingInterval: time.Second,
}

// BlockDataConfig describes where the fetcher writes chunks of contract logs
// and where the indexer reads them from.
type BlockDataConfig struct {
	Dir             string        `yaml:"dir"`
	Filename        string        `yaml:"filename"`
	BucketSize      int           `yaml:"bucket_size"`
	WaitingInterval time.Duration `yaml:"waiting_interval"`
	StartBlock      uint64        `yaml:"start_block"`
}

func (cfg BlockDataConfig) Validate() error {
	if cfg.Dir == "" {
		return fmt.Errorf("'dir' is required")
	}
	if cfg.Filename == "" {
		return fmt.Errorf("'filename' is required")
	}
	if cfg.BucketSize <= 0 {
		return fmt.Errorf("'bucket_size' must be positive")
	}
	if cfg.WaitingInterval <= 0 {
		return fmt.Errorf("'waiting_interval' must be positive")
	}
	return nil
}

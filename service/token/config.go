package token

import (
	"fmt"
	"time"
)

type Config struct {
	TTL time.Duration `yaml:"ttl"`
}

var DefaultConfig = Config{
	TTL: 7 * 24 * time.Hour,
}

func (cfg Config) Validate() error {
	if cfg.TTL <= 0 {
		return fmt.Errorf("'ttl' must be positive")
	}
	return nil
}

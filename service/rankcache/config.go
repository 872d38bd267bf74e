package rankcache

import (
	"fmt"
)

type Config struct {
	KeyPrefix string `yaml:"key_prefix"`
	Size      int    `yaml:"size"`
}

var DefaultConfig = Config{
	KeyPrefix: "stele:ranking:",
	Size:      100,
}

func (cfg Config) Validate() error {
	if cfg.KeyPrefix == "" {
		return fmt.Errorf("'key_prefix' is required")
	}
	if cfg.Size <= 0 {
		return fmt.Errorf("'size' must be positive")
	}
	return nil
}

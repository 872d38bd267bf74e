package oracle

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	RPCURL         string        `yaml:"rpc_url"`
	FactoryAddress string        `yaml:"factory_address"`
	SteleAddress   string        `yaml:"stele_address"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
}

var DefaultConfig = Config{
	// Uniswap V3 factory on Ethereum mainnet.
	FactoryAddress: "0x1F98431c8aD98523631AE4a59f267346ea31F984",
	CallTimeout:    10 * time.Second,
}

func (cfg Config) Validate() error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("'rpc_url' is required")
	}
	if !common.IsHexAddress(cfg.FactoryAddress) {
		return fmt.Errorf("'factory_address' is not a valid address: %q", cfg.FactoryAddress)
	}
	if !common.IsHexAddress(cfg.SteleAddress) {
		return fmt.Errorf("'stele_address' is not a valid address: %q", cfg.SteleAddress)
	}
	return nil
}

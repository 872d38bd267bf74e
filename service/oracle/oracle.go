package oracle

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReverted is wrapped by errors of calls the contract rejected or
// answered with unusable data. Any other error means the node could not be
// asked.
var ErrReverted = errors.New("execution reverted")

// Oracle is the read-only view of the exchange, token and challenge
// contracts. Every call may fail independently. Only failures wrapping
// ErrReverted describe the contract itself.
type Oracle interface {
	GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
	Token0(ctx context.Context, pool common.Address) (common.Address, error)
	Token1(ctx context.Context, pool common.Address) (common.Address, error)
	Liquidity(ctx context.Context, pool common.Address) (*big.Int, error)
	SqrtPriceX96(ctx context.Context, pool common.Address) (*big.Int, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	Symbol(ctx context.Context, token common.Address) (string, error)
	UserPortfolio(ctx context.Context, challengeID *big.Int, user common.Address) ([]common.Address, []*big.Int, error)
	Ranking(ctx context.Context, challengeID *big.Int) ([]common.Address, []*big.Int, error)
}

type blockNumberKey struct{}

// WithBlockNumber pins oracle calls made with the returned context to the
// state at the given block.
func WithBlockNumber(ctx context.Context, blockNumber uint64) context.Context {
	return context.WithValue(ctx, blockNumberKey{}, blockNumber)
}

// BlockNumber returns the pinned block number, or nil for the latest block.
func BlockNumber(ctx context.Context) *big.Int {
	n, ok := ctx.Value(blockNumberKey{}).(uint64)
	if !ok {
		return nil
	}
	return new(big.Int).SetUint64(n)
}

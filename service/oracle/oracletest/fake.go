// Package oracletest provides an in-memory oracle for tests.
package oracletest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/b-harvest/stele-backend/service/oracle"
)

var (
	ErrReverted    = fmt.Errorf("fake call: %w", oracle.ErrReverted)
	ErrUnavailable = errors.New("fake call: connect: connection refused")
)

type poolKey struct {
	a, b common.Address
	fee  uint32
}

type pool struct {
	token0, token1 common.Address
	liquidity      *big.Int
	sqrtPriceX96   *big.Int
}

type holdings struct {
	addrs   []common.Address
	amounts []*big.Int
}

// Oracle is a scriptable oracle.Oracle. Unknown tokens and pools revert,
// unknown pairs resolve to the zero address like the real factory.
type Oracle struct {
	mux        sync.Mutex
	pairs      map[poolKey]common.Address
	pools      map[common.Address]*pool
	decimals   map[common.Address]uint8
	symbols    map[common.Address]string
	portfolios map[string]holdings
	rankings   map[string]holdings
	reverts    map[string]bool
	failures   map[string]bool
	calls      map[string]int
}

var _ oracle.Oracle = (*Oracle)(nil)

func New() *Oracle {
	return &Oracle{
		pairs:      make(map[poolKey]common.Address),
		pools:      make(map[common.Address]*pool),
		decimals:   make(map[common.Address]uint8),
		symbols:    make(map[common.Address]string),
		portfolios: make(map[string]holdings),
		rankings:   make(map[string]holdings),
		reverts:    make(map[string]bool),
		failures:   make(map[string]bool),
		calls:      make(map[string]int),
	}
}

func (o *Oracle) SetToken(token common.Address, decimals uint8, symbol string) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.decimals[token] = decimals
	o.symbols[token] = symbol
}

// SetPool registers a pool for the pair. token0 and token1 are the pool's
// own ordering.
func (o *Oracle) SetPool(addr, token0, token1 common.Address, fee uint32, liquidity, sqrtPriceX96 *big.Int) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.pairs[poolKey{token0, token1, fee}] = addr
	o.pairs[poolKey{token1, token0, fee}] = addr
	o.pools[addr] = &pool{token0, token1, liquidity, sqrtPriceX96}
}

func (o *Oracle) SetLiquidity(addr common.Address, liquidity *big.Int) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.pools[addr].liquidity = liquidity
}

func (o *Oracle) SetSqrtPriceX96(addr common.Address, sqrtPriceX96 *big.Int) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.pools[addr].sqrtPriceX96 = sqrtPriceX96
}

// RemovePool makes the factory forget the pair while the pool contract
// keeps answering.
func (o *Oracle) RemovePool(addr common.Address) {
	o.mux.Lock()
	defer o.mux.Unlock()
	for k, v := range o.pairs {
		if v == addr {
			delete(o.pairs, k)
		}
	}
}

func (o *Oracle) SetPortfolio(challengeID *big.Int, user common.Address, tokens []common.Address, amounts []*big.Int) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.portfolios[portfolioKey(challengeID, user)] = holdings{tokens, amounts}
}

func (o *Oracle) SetRanking(challengeID *big.Int, users []common.Address, scores []*big.Int) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.rankings[challengeID.String()] = holdings{users, scores}
}

// Revert makes every call of the method fail until reset.
func (o *Oracle) Revert(method string, on bool) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.reverts[method] = on
}

// Fail makes every call of the method fail like an unreachable node until
// reset.
func (o *Oracle) Fail(method string, on bool) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.failures[method] = on
}

// Calls returns how many times the method was called.
func (o *Oracle) Calls(method string) int {
	o.mux.Lock()
	defer o.mux.Unlock()
	return o.calls[method]
}

func portfolioKey(challengeID *big.Int, user common.Address) string {
	return fmt.Sprintf("%s-%s", challengeID, user.Hex())
}

func (o *Oracle) begin(method string) error {
	o.calls[method]++
	if o.failures[method] {
		return ErrUnavailable
	}
	if o.reverts[method] {
		return ErrReverted
	}
	return nil
}

func (o *Oracle) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("getPool"); err != nil {
		return common.Address{}, err
	}
	return o.pairs[poolKey{tokenA, tokenB, fee}], nil
}

func (o *Oracle) Token0(ctx context.Context, addr common.Address) (common.Address, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("token0"); err != nil {
		return common.Address{}, err
	}
	p, ok := o.pools[addr]
	if !ok {
		return common.Address{}, ErrReverted
	}
	return p.token0, nil
}

func (o *Oracle) Token1(ctx context.Context, addr common.Address) (common.Address, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("token1"); err != nil {
		return common.Address{}, err
	}
	p, ok := o.pools[addr]
	if !ok {
		return common.Address{}, ErrReverted
	}
	return p.token1, nil
}

func (o *Oracle) Liquidity(ctx context.Context, addr common.Address) (*big.Int, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("liquidity"); err != nil {
		return nil, err
	}
	p, ok := o.pools[addr]
	if !ok || p.liquidity == nil {
		return nil, ErrReverted
	}
	return new(big.Int).Set(p.liquidity), nil
}

func (o *Oracle) SqrtPriceX96(ctx context.Context, addr common.Address) (*big.Int, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("slot0"); err != nil {
		return nil, err
	}
	p, ok := o.pools[addr]
	if !ok || p.sqrtPriceX96 == nil {
		return nil, ErrReverted
	}
	return new(big.Int).Set(p.sqrtPriceX96), nil
}

func (o *Oracle) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("decimals"); err != nil {
		return 0, err
	}
	d, ok := o.decimals[token]
	if !ok {
		return 0, ErrReverted
	}
	return d, nil
}

func (o *Oracle) Symbol(ctx context.Context, token common.Address) (string, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("symbol"); err != nil {
		return "", err
	}
	s, ok := o.symbols[token]
	if !ok {
		return "", ErrReverted
	}
	return s, nil
}

func (o *Oracle) UserPortfolio(ctx context.Context, challengeID *big.Int, user common.Address) ([]common.Address, []*big.Int, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("getUserPortfolio"); err != nil {
		return nil, nil, err
	}
	h, ok := o.portfolios[portfolioKey(challengeID, user)]
	if !ok {
		return nil, nil, ErrReverted
	}
	return h.addrs, h.amounts, nil
}

func (o *Oracle) Ranking(ctx context.Context, challengeID *big.Int) ([]common.Address, []*big.Int, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if err := o.begin("getRanking"); err != nil {
		return nil, nil, err
	}
	h, ok := o.rankings[challengeID.String()]
	if !ok {
		return nil, nil, ErrReverted
	}
	return h.addrs, h.amounts, nil
}

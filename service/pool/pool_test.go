package pool

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/service/oracle/oracletest"
	"github.com/b-harvest/stele-backend/service/store"
)

var (
	usdc     = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth     = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	poolAddr = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
	newAddr  = common.HexToAddress("0x0000000000000000000000000000000000000bad")
)

func newTestService() (*Service, *oracletest.Oracle, *store.MemStore) {
	or := oracletest.New()
	st := store.NewMemStore()
	return NewService(DefaultConfig, st, or, zap.NewNop()), or, st
}

func TestKey(t *testing.T) {
	k1 := Key(usdc, weth, 500)
	k2 := Key(weth, usdc, 500)
	require.Equal(t, k1, k2)
	require.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48-0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2-500", k1)
	require.NotEqual(t, k1, Key(usdc, weth, 3000))
}

func TestService_LookupPermanent(t *testing.T) {
	s, or, _ := newTestService()
	ctx := context.Background()
	or.SetPool(poolAddr, usdc, weth, 500, big.NewInt(100), big.NewInt(1))

	p, err := s.Lookup(ctx, weth, usdc, 500)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640", p.Address)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", p.Token0)
	assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", p.Token1)

	// Identity does not change even if the chain stops knowing the pool or
	// points the pair somewhere else.
	or.RemovePool(poolAddr)
	or.SetPool(newAddr, weth, usdc, 500, big.NewInt(1), big.NewInt(1))
	for i := 0; i < 3; i++ {
		p2, err := s.Lookup(ctx, usdc, weth, 500)
		require.NoError(t, err)
		require.NotNil(t, p2)
		assert.Equal(t, p.Address, p2.Address)
		assert.Equal(t, p.Token0, p2.Token0)
		assert.Equal(t, p.Token1, p2.Token1)
	}
	assert.Equal(t, 1, or.Calls("getPool"))
}

func TestService_LookupAbsentNotCached(t *testing.T) {
	s, or, st := newTestService()
	ctx := context.Background()

	p, err := s.Lookup(ctx, usdc, weth, 3000)
	require.NoError(t, err)
	require.Nil(t, p)
	p, err = s.Lookup(ctx, usdc, weth, 3000)
	require.NoError(t, err)
	require.Nil(t, p)
	assert.Equal(t, 2, or.Calls("getPool"))
	assert.Equal(t, 0, st.Count(store.KindPool))

	// Reverting factory or token accessors behave the same.
	or.SetPool(poolAddr, usdc, weth, 3000, big.NewInt(1), big.NewInt(1))
	or.Revert("token1", true)
	p, err = s.Lookup(ctx, usdc, weth, 3000)
	require.NoError(t, err)
	require.Nil(t, p)
	assert.Equal(t, 0, st.Count(store.KindPool))

	or.Revert("token1", false)
	p, err = s.Lookup(ctx, usdc, weth, 3000)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, st.Count(store.KindPool))
}

func TestService_Liquidity(t *testing.T) {
	s, or, _ := newTestService()
	ctx := context.Background()
	or.SetPool(poolAddr, usdc, weth, 500, big.NewInt(100), big.NewInt(1))
	p, err := s.Lookup(ctx, usdc, weth, 500)
	require.NoError(t, err)

	t1 := time.Unix(1700000000, 0)
	l, err := s.Liquidity(ctx, p, t1)
	require.NoError(t, err)
	assert.True(t, l.Equal(decimal.NewFromInt(100)))

	or.SetLiquidity(poolAddr, big.NewInt(200))
	l, err = s.Liquidity(ctx, p, t1.Add(DefaultConfig.LiquidityTTL-time.Second))
	require.NoError(t, err)
	assert.True(t, l.Equal(decimal.NewFromInt(100)))

	l, err = s.Liquidity(ctx, p, t1.Add(DefaultConfig.LiquidityTTL))
	require.NoError(t, err)
	assert.True(t, l.Equal(decimal.NewFromInt(200)))

	// Stale value on revert, and the timestamp is not advanced.
	or.Revert("liquidity", true)
	t2 := t1.Add(3 * DefaultConfig.LiquidityTTL)
	l, err = s.Liquidity(ctx, p, t2)
	require.NoError(t, err)
	assert.True(t, l.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, t1.Add(DefaultConfig.LiquidityTTL).Unix(), p.LiquidityUpdatedAt)
	assert.Equal(t, 3, or.Calls("liquidity"))

	// The refreshed value is persisted.
	p2, err := s.Lookup(ctx, usdc, weth, 500)
	require.NoError(t, err)
	assert.True(t, p2.Liquidity.Equal(decimal.NewFromInt(200)))
}

func TestService_SqrtPriceX96(t *testing.T) {
	s, or, _ := newTestService()
	ctx := context.Background()
	or.SetPool(poolAddr, usdc, weth, 500, big.NewInt(100), big.NewInt(7))
	p, err := s.Lookup(ctx, usdc, weth, 500)
	require.NoError(t, err)

	t1 := time.Unix(1700000000, 0)
	x, err := s.SqrtPriceX96(ctx, p, t1)
	require.NoError(t, err)
	assert.True(t, x.Equal(decimal.NewFromInt(7)))

	or.SetSqrtPriceX96(poolAddr, big.NewInt(9))
	x, err = s.SqrtPriceX96(ctx, p, t1.Add(DefaultConfig.Slot0TTL-time.Second))
	require.NoError(t, err)
	assert.True(t, x.Equal(decimal.NewFromInt(7)))

	x, err = s.SqrtPriceX96(ctx, p, t1.Add(DefaultConfig.Slot0TTL))
	require.NoError(t, err)
	assert.True(t, x.Equal(decimal.NewFromInt(9)))

	or.Revert("slot0", true)
	x, err = s.SqrtPriceX96(ctx, p, t1.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, x.Equal(decimal.NewFromInt(9)))
}

func TestService_NodeUnavailable(t *testing.T) {
	s, or, st := newTestService()
	ctx := context.Background()
	or.SetPool(poolAddr, usdc, weth, 500, big.NewInt(100), big.NewInt(7))

	for _, method := range []string{"getPool", "token0", "token1"} {
		or.Fail(method, true)
		p, err := s.Lookup(ctx, usdc, weth, 500)
		require.ErrorIs(t, err, oracletest.ErrUnavailable, method)
		require.Nil(t, p)
		or.Fail(method, false)
	}
	assert.Equal(t, 0, st.Count(store.KindPool))

	p, err := s.Lookup(ctx, usdc, weth, 500)
	require.NoError(t, err)
	require.NotNil(t, p)

	// A cached value is only served for reverts, not for an unreachable node.
	t1 := time.Unix(1700000000, 0)
	_, err = s.Liquidity(ctx, p, t1)
	require.NoError(t, err)
	or.Fail("liquidity", true)
	_, err = s.Liquidity(ctx, p, t1.Add(2*DefaultConfig.LiquidityTTL))
	require.ErrorIs(t, err, oracletest.ErrUnavailable)
	assert.Equal(t, t1.Unix(), p.LiquidityUpdatedAt)

	or.Fail("slot0", true)
	_, err = s.SqrtPriceX96(ctx, p, t1)
	require.ErrorIs(t, err, oracletest.ErrUnavailable)
	assert.Zero(t, p.Slot0UpdatedAt)
}

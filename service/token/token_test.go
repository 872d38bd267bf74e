package token

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/service/oracle/oracletest"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/util"
)

var (
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

func newTestService() (*Service, *oracletest.Oracle, *store.MemStore) {
	or := oracletest.New()
	st := store.NewMemStore()
	return NewService(DefaultConfig, st, or, zap.NewNop()), or, st
}

func TestService_DecimalsWithinTTL(t *testing.T) {
	s, or, _ := newTestService()
	ctx := context.Background()
	or.SetToken(usdc, 6, "USDC")

	t1 := time.Unix(1700000000, 0)
	r, err := s.Decimals(ctx, usdc, t1)
	require.NoError(t, err)
	require.Equal(t, util.Found, r.Status)
	require.Equal(t, 6, r.Value)
	require.Equal(t, 1, or.Calls("decimals"))

	// On-chain value changes but the cached one is served until the TTL elapses.
	or.SetToken(usdc, 18, "USDC")
	for _, d := range []time.Duration{time.Second, time.Hour, DefaultConfig.TTL - time.Second} {
		r, err = s.Decimals(ctx, usdc, t1.Add(d))
		require.NoError(t, err)
		assert.Equal(t, 6, r.Value)
	}
	assert.Equal(t, 1, or.Calls("decimals"))

	r, err = s.Decimals(ctx, usdc, t1.Add(DefaultConfig.TTL))
	require.NoError(t, err)
	assert.Equal(t, 18, r.Value)
	assert.Equal(t, 2, or.Calls("decimals"))
}

func TestService_DecimalsNotFound(t *testing.T) {
	s, _, st := newTestService()
	r, err := s.Decimals(context.Background(), dai, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.False(t, r.OK())
	require.Equal(t, 0, st.Count(store.KindToken))

	d, err := s.DecimalsOrDefault(context.Background(), dai, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Equal(t, DefaultDecimals, d)
}

func TestService_DecimalsServeStale(t *testing.T) {
	s, or, _ := newTestService()
	ctx := context.Background()
	or.SetToken(usdc, 6, "USDC")
	t1 := time.Unix(1700000000, 0)
	_, err := s.Decimals(ctx, usdc, t1)
	require.NoError(t, err)

	or.Revert("decimals", true)
	r, err := s.Decimals(ctx, usdc, t1.Add(2*DefaultConfig.TTL))
	require.NoError(t, err)
	assert.Equal(t, util.Stale, r.Status)
	assert.Equal(t, 6, r.Value)
}

func TestService_Symbol(t *testing.T) {
	s, or, st := newTestService()
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	// Nothing known about the token.
	sym, err := s.Symbol(ctx, dai, now)
	require.NoError(t, err)
	assert.Equal(t, UnknownSymbol, sym)
	assert.Equal(t, 0, st.Count(store.KindToken))

	// Symbol reverts but decimals resolve.
	or.SetToken(dai, 18, "DAI")
	or.Revert("symbol", true)
	sym, err = s.Symbol(ctx, dai, now)
	require.NoError(t, err)
	assert.Equal(t, UnknownSymbol, sym)
	assert.Equal(t, 1, st.Count(store.KindToken))

	// Refreshed after the TTL.
	or.Revert("symbol", false)
	sym, err = s.Symbol(ctx, dai, now.Add(DefaultConfig.TTL))
	require.NoError(t, err)
	assert.Equal(t, "DAI", sym)

	// Stale symbol is served when the refresh fails.
	or.Revert("symbol", true)
	sym, err = s.Symbol(ctx, dai, now.Add(3*DefaultConfig.TTL))
	require.NoError(t, err)
	assert.Equal(t, "DAI", sym)
}

func TestService_SymbolCreatesRow(t *testing.T) {
	s, or, _ := newTestService()
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	or.SetToken(usdc, 6, "USDC")

	sym, err := s.Symbol(ctx, usdc, now)
	require.NoError(t, err)
	assert.Equal(t, "USDC", sym)

	r, err := s.Decimals(ctx, usdc, now)
	require.NoError(t, err)
	assert.Equal(t, util.Found, r.Status)
	assert.Equal(t, 6, r.Value)
	assert.Equal(t, 1, or.Calls("decimals"))
}

func TestService_NodeUnavailable(t *testing.T) {
	s, or, st := newTestService()
	ctx := context.Background()
	t1 := time.Unix(1700000000, 0)

	or.Fail("decimals", true)
	_, err := s.Decimals(ctx, usdc, t1)
	require.ErrorIs(t, err, oracletest.ErrUnavailable)
	_, err = s.DecimalsOrDefault(ctx, usdc, t1)
	require.ErrorIs(t, err, oracletest.ErrUnavailable)
	_, err = s.Symbol(ctx, usdc, t1)
	require.ErrorIs(t, err, oracletest.ErrUnavailable)
	assert.Equal(t, 0, st.Count(store.KindToken))

	// Cached rows are not served when the refresh could not reach the node.
	or.Fail("decimals", false)
	or.SetToken(usdc, 6, "USDC")
	_, err = s.Decimals(ctx, usdc, t1)
	require.NoError(t, err)
	or.Fail("decimals", true)
	_, err = s.Decimals(ctx, usdc, t1.Add(2*DefaultConfig.TTL))
	require.ErrorIs(t, err, oracletest.ErrUnavailable)

	or.Fail("symbol", true)
	_, err = s.Symbol(ctx, usdc, t1.Add(2*DefaultConfig.TTL))
	require.ErrorIs(t, err, oracletest.ErrUnavailable)
}

package portfolio

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

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/oracle/oracletest"
	"github.com/b-harvest/stele-backend/service/pool"
	"github.com/b-harvest/stele-backend/service/price"
	"github.com/b-harvest/stele-backend/service/snapshot"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/service/token"
	"github.com/b-harvest/stele-backend/util"
)

var (
	usdc   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	tokenX = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenZ = common.HexToAddress("0x2222222222222222222222222222222222222222")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
)

type fakePricer map[common.Address]decimal.Decimal

func (p fakePricer) PriceUSD(ctx context.Context, tok common.Address, now time.Time) (price.Result, error) {
	v, ok := p[tok]
	if !ok {
		return util.NotFoundResult[decimal.Decimal](), nil
	}
	return util.FoundResult(v), nil
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func amount(x, decimals int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(x), pow10(decimals))
}

type testEnv struct {
	v  *Valuator
	or *oracletest.Oracle
	st *store.MemStore
}

func newTestEnv(prices fakePricer) testEnv {
	or := oracletest.New()
	st := store.NewMemStore()
	logger := zap.NewNop()
	ts := token.NewService(token.DefaultConfig, st, or, logger)
	v := NewValuator(st, or, ts, prices, snapshot.NewService(st, logger), logger)
	or.SetToken(usdc, 6, "USDC")
	or.SetToken(tokenX, 18, "X")
	return testEnv{v, or, st}
}

func (env testEnv) putInvestor(t *testing.T, seed int64) schema.Investor {
	inv := schema.Investor{
		ID:           schema.InvestorID("1", util.Addr(alice)),
		ChallengeID:  "1",
		Address:      util.Addr(alice),
		SeedMoneyUSD: decimal.NewFromInt(seed),
		CurrentUSD:   decimal.NewFromInt(seed),
	}
	inv.SetHoldings([]schema.Holding{{Token: util.Addr(usdc), Amount: decimal.NewFromInt(seed), Decimals: 6, Symbol: "USDC"}})
	require.NoError(t, store.Put(context.Background(), env.st, store.KindInvestor, inv.ID, inv))
	return inv
}

func (env testEnv) investor(t *testing.T) *schema.Investor {
	inv, err := store.Get[schema.Investor](context.Background(), env.st, store.KindInvestor, schema.InvestorID("1", util.Addr(alice)))
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

func TestValuator_Revalue(t *testing.T) {
	env := newTestEnv(fakePricer{tokenX: decimal.RequireFromString("2.00000")})
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	env.putInvestor(t, 1000)
	env.or.SetPortfolio(big.NewInt(1), alice, []common.Address{tokenX}, []*big.Int{amount(500, 18)})

	require.NoError(t, env.v.Revalue(ctx, big.NewInt(1), alice, now))

	inv := env.investor(t)
	assert.Equal(t, "1000", inv.CurrentUSD.String())
	assert.True(t, inv.ProfitUSD.IsZero())
	assert.True(t, inv.ProfitRatio.IsZero())
	assert.Equal(t, []string{util.Addr(tokenX)}, inv.Tokens)
	assert.Equal(t, []int{18}, inv.TokensDecimals)
	assert.Equal(t, []string{"X"}, inv.TokensSymbols)
	require.Len(t, inv.TokensAmount, 1)
	assert.True(t, inv.TokensAmount[0].Equal(decimal.NewFromInt(500)))
	assert.Equal(t, now.Unix(), inv.UpdatedAt)
	assert.Equal(t, 1, env.st.Count(store.KindInvestorSnapshot))
}

func TestValuator_RevalueProfit(t *testing.T) {
	env := newTestEnv(fakePricer{
		usdc:   decimal.NewFromInt(1),
		tokenX: decimal.RequireFromString("0.333333333"),
	})
	ctx := context.Background()
	env.putInvestor(t, 1000)
	env.or.SetPortfolio(big.NewInt(1), alice,
		[]common.Address{usdc, tokenX, tokenZ},
		[]*big.Int{amount(400, 6), amount(3000, 18), amount(7, 18)})

	require.NoError(t, env.v.Revalue(ctx, big.NewInt(1), alice, time.Unix(1700000000, 0)))

	inv := env.investor(t)
	// 400 + 3000*0.333333333 = 1399.999999, truncated to five digits.
	assert.Equal(t, "1399.99999", inv.CurrentUSD.String())
	assert.Equal(t, "399.99999", inv.ProfitUSD.String())
	assert.True(t, inv.ProfitRatio.Equal(decimal.RequireFromString("0.39999999")))
	// The unknown token is kept in the holdings with default metadata.
	require.Len(t, inv.Tokens, 3)
	assert.Equal(t, token.DefaultDecimals, inv.TokensDecimals[2])
	assert.Equal(t, token.UnknownSymbol, inv.TokensSymbols[2])
	assert.True(t, inv.TokensAmount[2].Equal(decimal.NewFromInt(7)))
}

func TestValuator_RevalueZeroSeed(t *testing.T) {
	env := newTestEnv(fakePricer{usdc: decimal.NewFromInt(1)})
	env.putInvestor(t, 0)
	env.or.SetPortfolio(big.NewInt(1), alice, []common.Address{usdc}, []*big.Int{amount(5, 6)})

	require.NoError(t, env.v.Revalue(context.Background(), big.NewInt(1), alice, time.Unix(1700000000, 0)))

	inv := env.investor(t)
	assert.True(t, inv.CurrentUSD.Equal(decimal.NewFromInt(5)))
	assert.True(t, inv.ProfitRatio.IsZero())
}

func TestValuator_RevalueNoop(t *testing.T) {
	env := newTestEnv(fakePricer{})
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	// Unknown investor.
	require.NoError(t, env.v.Revalue(ctx, big.NewInt(1), alice, now))
	assert.Equal(t, 0, env.or.Calls("getUserPortfolio"))

	// Portfolio view fails: the investor is left as it was.
	orig := env.putInvestor(t, 1000)
	env.or.Revert("getUserPortfolio", true)
	require.NoError(t, env.v.Revalue(ctx, big.NewInt(1), alice, now))
	inv := env.investor(t)
	assert.Equal(t, orig.Tokens, inv.Tokens)
	assert.True(t, inv.CurrentUSD.Equal(orig.CurrentUSD))
	assert.Equal(t, 0, env.st.Count(store.KindInvestorSnapshot))
}

func TestValuator_RevalueNodeUnavailable(t *testing.T) {
	or := oracletest.New()
	st := store.NewMemStore()
	logger := zap.NewNop()
	ts := token.NewService(token.DefaultConfig, st, or, logger)
	ps := pool.NewService(pool.DefaultConfig, st, or, logger)
	engine := price.NewEngine(price.DefaultConfig, st, ts, ps, logger)
	env := testEnv{NewValuator(st, or, ts, engine, snapshot.NewService(st, logger), logger), or, st}
	or.SetToken(tokenX, 18, "X")
	weth := common.HexToAddress(price.DefaultConfig.WETHAddress)
	or.SetToken(weth, 18, "WETH")
	or.SetPool(common.HexToAddress("0x0000000000000000000000000000000000003000"),
		tokenX, weth, 3000, big.NewInt(500), new(big.Int).Lsh(big.NewInt(1), 96))
	_, err := engine.InitBundle(context.Background())
	require.NoError(t, err)

	seeded := env.putInvestor(t, 1000)
	env.or.SetPortfolio(big.NewInt(1), alice, []common.Address{tokenX}, []*big.Int{amount(500, 18)})

	// Pools cannot be discovered while the node is down.
	env.or.Fail("getPool", true)
	err = env.v.Revalue(context.Background(), big.NewInt(1), alice, time.Unix(1700000000, 0))
	require.ErrorIs(t, err, oracletest.ErrUnavailable)
	inv := env.investor(t)
	assert.True(t, inv.CurrentUSD.Equal(seeded.CurrentUSD), inv.CurrentUSD.String())
	assert.Equal(t, seeded.Tokens, inv.Tokens)
	assert.Zero(t, inv.UpdatedAt)
	assert.Equal(t, 0, env.st.Count(store.KindInvestorSnapshot))
	assert.Equal(t, 0, env.st.Count(store.KindPool))

	env.or.Fail("getPool", false)
	env.or.Fail("getUserPortfolio", true)
	err = env.v.Revalue(context.Background(), big.NewInt(1), alice, time.Unix(1700000000, 0))
	require.ErrorIs(t, err, oracletest.ErrUnavailable)
	assert.Zero(t, env.investor(t).UpdatedAt)
	assert.Equal(t, 0, env.st.Count(store.KindInvestorSnapshot))
}

func TestValuator_RevaluePortfolioReverts(t *testing.T) {
	env := newTestEnv(fakePricer{})
	env.putInvestor(t, 1000)
	env.or.Revert("getUserPortfolio", true)

	require.NoError(t, env.v.Revalue(context.Background(), big.NewInt(1), alice, time.Unix(1700000000, 0)))
	assert.Zero(t, env.investor(t).UpdatedAt)
	assert.Equal(t, 0, env.st.Count(store.KindInvestorSnapshot))
}

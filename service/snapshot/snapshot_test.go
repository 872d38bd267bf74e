package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/store"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")

func newTestService() (*Service, *store.MemStore) {
	st := store.NewMemStore()
	return NewService(st, zap.NewNop()), st
}

func TestService_Challenge(t *testing.T) {
	s, st := newTestService()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Missing owner is a no-op.
	require.NoError(t, s.Challenge(ctx, "1", now))
	require.Equal(t, 0, st.Count(store.KindChallengeSnapshot))

	c := schema.Challenge{
		ID:              "1",
		InvestorCount:   2,
		RewardAmountUSD: decimal.NewFromInt(20),
		IsActive:        true,
	}
	require.NoError(t, store.Put(ctx, st, store.KindChallenge, c.ID, c))
	require.NoError(t, s.Challenge(ctx, "1", now))

	// A later update on the same day replaces the row.
	c.InvestorCount = 3
	require.NoError(t, store.Put(ctx, st, store.KindChallenge, c.ID, c))
	require.NoError(t, s.Challenge(ctx, "1", now.Add(time.Hour)))
	require.Equal(t, 1, st.Count(store.KindChallengeSnapshot))

	snap, err := store.Get[schema.ChallengeSnapshot](ctx, st, store.KindChallengeSnapshot, "1-19783")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.EqualValues(t, 19783, snap.DayID)
	assert.EqualValues(t, 3, snap.InvestorCount)
	assert.True(t, snap.IsActive)
	assert.Equal(t, now.Add(time.Hour).Unix(), snap.Timestamp)

	require.NoError(t, s.Challenge(ctx, "1", now.Add(24*time.Hour)))
	require.Equal(t, 2, st.Count(store.KindChallengeSnapshot))
}

func TestService_ActiveChallenges(t *testing.T) {
	s, st := newTestService()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.ActiveChallenges(ctx, now))
	require.Equal(t, 0, st.Count(store.KindActiveChallengesSnapshot))

	ac := schema.ActiveChallenges{ID: schema.ActiveChallengesID}
	ac.Slots[schema.OneWeek] = schema.ActiveSlot{ChallengeID: "1", InvestorCount: 2, RewardAmountUSD: decimal.NewFromInt(20)}
	ac.Slots[schema.OneYear] = schema.ActiveSlot{ChallengeID: "2", InvestorCount: 1, RewardAmountUSD: decimal.RequireFromString("2.5")}
	require.NoError(t, store.Put(ctx, st, store.KindActiveChallenges, ac.ID, ac))
	require.NoError(t, s.ActiveChallenges(ctx, now))

	snap, err := store.Get[schema.ActiveChallengesSnapshot](ctx, st, store.KindActiveChallengesSnapshot, "19783")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.EqualValues(t, 3, snap.TotalParticipants)
	assert.True(t, snap.TotalRewards.Equal(decimal.RequireFromString("22.5")))
	assert.Equal(t, "2", snap.Slots[schema.OneYear].ChallengeID)
}

func TestService_Investor(t *testing.T) {
	s, st := newTestService()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Investor(ctx, "1", alice, now))
	require.Equal(t, 0, st.Count(store.KindInvestorSnapshot))

	inv := schema.Investor{
		ID:           schema.InvestorID("1", alice.Hex()),
		ChallengeID:  "1",
		SeedMoneyUSD: decimal.NewFromInt(1000),
		CurrentUSD:   decimal.NewFromInt(1200),
		ProfitUSD:    decimal.NewFromInt(200),
		ProfitRatio:  decimal.RequireFromString("0.2"),
	}
	inv.SetHoldings([]schema.Holding{{Token: "0xusd", Amount: decimal.NewFromInt(1200), Decimals: 6, Symbol: "USDC"}})
	require.NoError(t, store.Put(ctx, st, store.KindInvestor, inv.ID, inv))
	require.NoError(t, s.Investor(ctx, "1", alice, now))

	id := "1-0x00000000000000000000000000000000000a11ce-19783"
	snap, err := store.Get[schema.InvestorSnapshot](ctx, st, store.KindInvestorSnapshot, id)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, inv.ID, snap.InvestorID)
	assert.True(t, snap.CurrentUSD.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, []string{"USDC"}, snap.TokensSymbols)
	assert.Equal(t, []int{6}, snap.TokensDecimals)
}

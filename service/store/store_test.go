package store

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/b-harvest/stele-backend/schema"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	c, err := Get[schema.Challenge](ctx, s, KindChallenge, "1")
	require.NoError(t, err)
	require.Nil(t, c)

	err = Put(ctx, s, KindChallenge, "1", schema.Challenge{
		ID:        "1",
		SeedMoney: decimal.NewFromInt(1000),
		IsActive:  true,
		TopUsers:  []string{"0xabc"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, s.Count(KindChallenge))
	require.Equal(t, 0, s.Count(KindInvestor))

	c, err = Get[schema.Challenge](ctx, s, KindChallenge, "1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.SeedMoney.Equal(decimal.NewFromInt(1000)))
	assert.True(t, c.IsActive)

	// Mutating a loaded value must not leak into the store.
	c.TopUsers[0] = "0xdef"
	c2, err := Get[schema.Challenge](ctx, s, KindChallenge, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, c2.TopUsers)
}

func TestMemStore_Checkpoint(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	cp, err := s.Checkpoint(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, cp.BlockNumber)
	require.NoError(t, s.SetLatestBlockNumber(ctx, 1234))
	cp, err = s.Checkpoint(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1234, cp.BlockNumber)
	require.False(t, cp.Timestamp.IsZero())
}

func TestDecimalCodec(t *testing.T) {
	reg := Registry()
	in := schema.Bundle{
		ID:          schema.BundleID,
		EthPriceUSD: decimal.RequireFromString("3456.123456789012345678901234"),
		UpdatedAt:   1700000000,
	}
	b, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(b, &raw))
	assert.Equal(t, "3456.123456789012345678901234", raw["ethPriceUSD"])

	var out schema.Bundle
	require.NoError(t, bson.UnmarshalWithRegistry(reg, b, &out))
	assert.True(t, in.EthPriceUSD.Equal(out.EthPriceUSD))
	assert.Equal(t, in.UpdatedAt, out.UpdatedAt)
}

func TestDecimalCodec_NumericInput(t *testing.T) {
	reg := Registry()
	b, err := bson.Marshal(bson.M{"_id": "x", "priceETH": 1.5, "bucketStart": int64(900)})
	require.NoError(t, err)
	var out schema.PriceCache
	require.NoError(t, bson.UnmarshalWithRegistry(reg, b, &out))
	assert.True(t, out.PriceETH.Equal(decimal.RequireFromString("1.5")))
	assert.EqualValues(t, 900, out.BucketStart)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig.Validate())
	cfg := DefaultConfig
	cfg.EventCollection = cfg.TokenCollection
	require.Error(t, cfg.Validate())
	cfg = DefaultConfig
	cfg.DB = ""
	require.Error(t, cfg.Validate())
}

// TestService runs against a live MongoDB given by STELE_TEST_MONGODB_URI.
func TestService(t *testing.T) {
	uri := os.Getenv("STELE_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("STELE_TEST_MONGODB_URI is not set")
	}
	ctx := context.Background()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(Registry()))
	require.NoError(t, err)
	defer mc.Disconnect(ctx)

	cfg := DefaultConfig
	cfg.DB = "stele_test"
	s := NewService(cfg, mc)
	require.NoError(t, s.Database().Drop(ctx))

	_, err = s.EnsureDBIndexes(ctx)
	require.NoError(t, err)

	tok, err := Get[schema.Token](ctx, s, KindToken, "0xabc")
	require.NoError(t, err)
	require.Nil(t, tok)

	require.NoError(t, Put(ctx, s, KindToken, "0xabc", schema.Token{ID: "0xabc", Decimals: 6, Symbol: "USDC"}))
	require.NoError(t, Put(ctx, s, KindToken, "0xabc", schema.Token{ID: "0xabc", Decimals: 6, Symbol: "USDC.e"}))
	tok, err = Get[schema.Token](ctx, s, KindToken, "0xabc")
	require.NoError(t, err)
	require.Equal(t, "USDC.e", tok.Symbol)

	require.NoError(t, s.SetLatestBlockNumber(ctx, 100))
	require.NoError(t, s.SetLatestBlockNumber(ctx, 101))
	cp, err := s.Checkpoint(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 101, cp.BlockNumber)
}

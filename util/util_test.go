package util

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleDown(t *testing.T) {
	raw, ok := new(big.Int).SetString("1000000000", 10)
	require.True(t, ok)
	assert.True(t, ScaleDown(raw, 6).Equal(decimal.NewFromInt(1000)))
	assert.True(t, ScaleDown(big.NewInt(1500000), 6).Equal(decimal.RequireFromString("1.5")))
	assert.True(t, ScaleDown(big.NewInt(42), 0).Equal(decimal.NewFromInt(42)))
	assert.True(t, ScaleDown(nil, 18).IsZero())
}

func TestAddr(t *testing.T) {
	a := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", Addr(a))
}

func TestRemoveString(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, RemoveString([]string{"a", "b", "c", "b"}, "b"))
	assert.Equal(t, []string{}, RemoveString(nil, "b"))
}

func TestResult(t *testing.T) {
	r := NotFoundResult[int]()
	assert.False(t, r.OK())
	assert.Equal(t, "not_found", r.Status.String())
	r = StaleResult(18)
	assert.True(t, r.OK())
	assert.Equal(t, 18, r.Value)
	r = FoundResult(6)
	assert.Equal(t, Found, r.Status)
}

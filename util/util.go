package util

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func NewImmediateTicker(d time.Duration) *time.Ticker {
	t := time.NewTicker(d)
	oc := t.C
	nc := make(chan time.Time, 1)
	go func() {
		nc <- time.Now()
		for tm := range oc {
			nc <- tm
		}
	}()
	t.C = nc
	return t
}

func StringInSlice(s string, ss []string) bool {
	for _, x := range ss {
		if s == x {
			return true
		}
	}
	return false
}

func RemoveString(ss []string, s string) []string {
	res := make([]string, 0, len(ss))
	for _, x := range ss {
		if x != s {
			res = append(res, x)
		}
	}
	return res
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Addr returns the lowercase hex form of an address, used as entity keys.
func Addr(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// ScaleDown converts a raw integer amount into a decimal with the given
// number of fractional digits.
func ScaleDown(raw *big.Int, decimals int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, int32(-decimals))
}

func BigIntsToDecimals(xs []*big.Int) []decimal.Decimal {
	res := make([]decimal.Decimal, len(xs))
	for i, x := range xs {
		res[i] = decimal.NewFromBigInt(x, 0)
	}
	return res
}

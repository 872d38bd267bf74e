package price

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const pricePrecision = 36

var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// SqrtPriceX96ToPrices converts a pool's sqrt price into the price of
// token0 denominated in token1 and the price of token1 denominated in
// token0, both adjusted for the tokens' decimals. Zero is returned for a
// side whose denominator is zero.
func SqrtPriceX96ToPrices(sqrtPriceX96 *big.Int, decimals0, decimals1 int) (price0, price1 decimal.Decimal) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}
	sq := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	num := new(big.Int).Mul(sq, pow10(decimals0))
	den := new(big.Int).Mul(q192, pow10(decimals1))
	n, d := decimal.NewFromBigInt(num, 0), decimal.NewFromBigInt(den, 0)
	return n.DivRound(d, pricePrecision), d.DivRound(n, pricePrecision)
}

package expr

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// resultDecimals is the number of decimal places results are rounded to.
const resultDecimals = 10

var (
	resultScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(resultDecimals), nil)
	half        = big.NewRat(1, 2)
)

// RoundResult rounds x to ten decimal places, working on the exact binary
// value of x. Ties round away from zero, so 1/2048 (0.00048828125) becomes
// 0.0004882813. Magnitudes of 1e21 and above already have no fractional
// digits and are returned unchanged.
func RoundResult(x float64) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) || math.Abs(x) >= 1e21 {
		return x
	}
	r := new(big.Rat).SetFloat64(math.Abs(x))
	r.Mul(r, new(big.Rat).SetInt(resultScale))
	r.Add(r, half)
	n := new(big.Int).Quo(r.Num(), r.Denom())

	rounded, _ := new(big.Rat).SetFrac(n, resultScale).Float64()
	if x < 0 {
		return -rounded
	}
	return rounded
}

// FormatNumber renders x using the shortest digits that round-trip.
// Exponents from -6 through 20 print in positional notation, anything
// outside uses "1.5e+21" / "1e-7" style. Negative zero prints as "0".
func FormatNumber(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	case x == 0:
		return "0"
	}

	sci := strconv.FormatFloat(x, 'e', -1, 64)
	mant, expPart, _ := strings.Cut(sci, "e")
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		return sci
	}
	if exp >= -6 && exp <= 20 {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprintf("%se%+d", mant, exp)
}

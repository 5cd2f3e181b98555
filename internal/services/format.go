package services

import (
	"math"
	"math/big"
	"strconv"
)

var half = big.NewFloat(0.5)

// FormatKilometers renders meters as kilometers with exactly one decimal digit.
// List views display this string verbatim, so exact ties such as 0.25 km round
// away from zero ("0.3") rather than to even.
func FormatKilometers(meters float64) string {
	km := meters / 1000
	if s, ok := formatTie(km); ok {
		return s
	}
	return strconv.FormatFloat(km, 'f', 1, 64)
}

// formatTie reports whether km lies exactly halfway between two tenths and,
// if so, returns it rounded away from zero.
func formatTie(km float64) (string, bool) {
	if math.IsNaN(km) || math.IsInf(km, 0) {
		return "", false
	}

	tenths := new(big.Float).SetPrec(256).SetFloat64(km)
	tenths.Mul(tenths, big.NewFloat(10))

	whole, _ := tenths.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(tenths, new(big.Float).SetInt(whole))
	if frac.Abs(frac).Cmp(half) != 0 {
		return "", false
	}

	neg := tenths.Sign() < 0
	whole.Abs(whole)
	whole.Add(whole, big.NewInt(1))

	digits, rem := new(big.Int).QuoRem(whole, big.NewInt(10), new(big.Int))
	s := digits.String() + "." + rem.String()
	if neg {
		s = "-" + s
	}
	return s, true
}

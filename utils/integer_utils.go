package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// GetIntegerConstraints takes a given signed indicator and bit length for a prospective integer and determines the
// minimum/maximum value boundaries.
// Returns the minimum and maximum value for the provided integer properties. Minimums and maximums are inclusive.
func GetIntegerConstraints(signed bool, bitLength int) (*big.Int, *big.Int) {
	// Calculate our min and max bounds for this integer.
	var min, max *big.Int
	if signed {
		// Set max as 2^(bitLen - 1) - 1
		max = big.NewInt(2)
		max.Exp(max, big.NewInt(int64(bitLength-1)), nil)
		max.Sub(max, big.NewInt(1))

		// Set min as -(2^(bitLen - 1))
		min = big.NewInt(0).Mul(max, big.NewInt(-1))
		min.Sub(min, big.NewInt(1))
	} else {
		// Set max as 2^bitLen - 1
		max = big.NewInt(2)
		max.Exp(max, big.NewInt(int64(bitLength)), nil)
		max.Sub(max, big.NewInt(1))

		// Set minimum as zero
		min = big.NewInt(0)
	}
	return min, max
}

// GetRangeShare returns the exact share of an integer domain covered by the half-open range [start, end), as a
// decimal between 0 and 1. The share of an empty or inverted range is zero.
func GetRangeShare(signed bool, bitLength int, start *big.Int, end *big.Int) decimal.Decimal {
	min, max := GetIntegerConstraints(signed, bitLength)
	domain := new(big.Int).Sub(max, min)
	domain.Add(domain, big.NewInt(1))

	width := new(big.Int).Sub(end, start)
	if width.Sign() <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(width, 0).DivRound(decimal.NewFromBigInt(domain, 0), 40)
}

package utils

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestGetIntegerConstraints verifies the inclusive bounds of signed and unsigned integer widths.
func TestGetIntegerConstraints(t *testing.T) {
	min, max := GetIntegerConstraints(false, 8)
	assert.EqualValues(t, 0, min.Int64())
	assert.EqualValues(t, 255, max.Int64())

	min, max = GetIntegerConstraints(true, 8)
	assert.EqualValues(t, -128, min.Int64())
	assert.EqualValues(t, 127, max.Int64())

	_, max = GetIntegerConstraints(false, 256)
	assert.Equal(t, 256, max.BitLen())
}

// TestGetRangeShare verifies the exact share of a domain covered by a half-open range.
func TestGetRangeShare(t *testing.T) {
	share := GetRangeShare(false, 8, big.NewInt(0), big.NewInt(128))
	assert.True(t, share.Equal(decimal.RequireFromString("0.5")), share.String())

	share = GetRangeShare(true, 8, big.NewInt(-128), big.NewInt(128))
	assert.True(t, share.Equal(decimal.NewFromInt(1)), share.String())

	share = GetRangeShare(false, 16, big.NewInt(10), big.NewInt(10))
	assert.True(t, share.IsZero())

	share = GetRangeShare(false, 32, big.NewInt(1), big.NewInt(100))
	assert.True(t, share.GreaterThan(decimal.Zero))
	assert.True(t, share.LessThan(decimal.RequireFromString("0.0000001")))
}

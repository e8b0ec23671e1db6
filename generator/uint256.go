package generator

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// RangeGenerator256 draws 256-bit unsigned integers uniformly from [min, max).
type RangeGenerator256 struct {
	source *Source
	min    *uint256.Int
	max    *uint256.Int
	span   *uint256.Int
	// spanBits is the bit length of span-1, the number of low bits a candidate draw needs.
	spanBits int
}

// NewRangeGenerator256 creates a RangeGenerator256 seeded with the provided seed. The bounds are copied. Returns
// ErrEmptyRange if min >= max.
func NewRangeGenerator256(seed uint64, min *uint256.Int, max *uint256.Int) (*RangeGenerator256, error) {
	if min == nil || max == nil {
		return nil, errors.New("range bounds must not be nil")
	}
	if !min.Lt(max) {
		return nil, errors.Wrapf(ErrEmptyRange, "cannot generate values in [%v, %v)", min, max)
	}

	span := new(uint256.Int).Sub(max, min)
	spanMinusOne := new(uint256.Int).SubUint64(span, 1)
	return &RangeGenerator256{
		source:   NewSource(seed),
		min:      min.Clone(),
		max:      max.Clone(),
		span:     span,
		spanBits: spanMinusOne.BitLen(),
	}, nil
}

// Generate returns a new value in [min, max). The returned value is owned by the caller.
func (g *RangeGenerator256) Generate() *uint256.Int {
	for {
		candidate := drawUint256(g.source)
		maskUint256(candidate, g.spanBits)
		if candidate.Lt(g.span) {
			return candidate.Add(candidate, g.min)
		}
	}
}

// FullRangeGenerator256 draws 256-bit unsigned integers uniformly from [0, 2^256).
type FullRangeGenerator256 struct {
	source *Source
}

// NewFullRangeGenerator256 creates a FullRangeGenerator256 seeded with the provided seed.
func NewFullRangeGenerator256(seed uint64) *FullRangeGenerator256 {
	return &FullRangeGenerator256{
		source: NewSource(seed),
	}
}

// Generate returns a new 256-bit value. The returned value is owned by the caller.
func (g *FullRangeGenerator256) Generate() *uint256.Int {
	return drawUint256(g.source)
}

// drawUint256 fills a new uint256.Int from four consecutive draws, least significant limb first.
func drawUint256(source *Source) *uint256.Int {
	var z uint256.Int
	for i := range z {
		z[i] = source.Uint64()
	}
	return &z
}

// maskUint256 clears every bit of z at or above the given bit length.
func maskUint256(z *uint256.Int, bitLength int) {
	for i := range z {
		low := i * 64
		switch {
		case bitLength <= low:
			z[i] = 0
		case bitLength < low+64:
			z[i] &= (uint64(1) << uint(bitLength-low)) - 1
		}
	}
}

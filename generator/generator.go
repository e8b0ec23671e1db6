package generator

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// ErrEmptyRange is returned when a range generator is constructed with a lower bound that is not strictly below its
// exclusive upper bound.
var ErrEmptyRange = errors.New("range is empty: the lower bound must be less than the exclusive upper bound")

// Generator describes a stateful, seeded source of values of type T. Each call to Generate advances the internal
// stream, and the sequence of returned values is fully determined by the seed the generator was constructed with.
type Generator[T any] interface {
	// Generate returns the next value of the stream.
	Generate() T
}

// DeriveSeed returns the seed of the generator at the given zero-based parameter index for a base seed. The addition
// wraps on overflow.
func DeriveSeed(base uint64, index int) uint64 {
	return base + uint64(index)
}

// Sample draws n values from the generator in order.
func Sample[T any](g Generator[T], n int) []T {
	values := make([]T, n)
	for i := 0; i < n; i++ {
		values[i] = g.Generate()
	}
	return values
}

// RangeGenerator draws integers uniformly from the half-open interval [min, max).
type RangeGenerator[T constraints.Integer] struct {
	// source provides the random stream for this generator.
	source *Source

	// min describes the inclusive lower bound of generated values.
	min T

	// max describes the exclusive upper bound of generated values.
	max T

	// span describes the number of values in [min, max), computed in two's complement so signed bounds work.
	span uint64
}

// NewRangeGenerator creates a RangeGenerator seeded with the provided seed that produces values in [min, max).
// Returns ErrEmptyRange if min >= max.
func NewRangeGenerator[T constraints.Integer](seed uint64, min T, max T) (*RangeGenerator[T], error) {
	if min >= max {
		return nil, errors.Wrapf(ErrEmptyRange, "cannot generate values in [%v, %v)", min, max)
	}

	return &RangeGenerator[T]{
		source: NewSource(seed),
		min:    min,
		max:    max,
		span:   uint64(max) - uint64(min),
	}, nil
}

// MustNewRangeGenerator is NewRangeGenerator, but panics if the range is empty.
func MustNewRangeGenerator[T constraints.Integer](seed uint64, min T, max T) *RangeGenerator[T] {
	g, err := NewRangeGenerator(seed, min, max)
	if err != nil {
		panic(err)
	}
	return g
}

// Bounds returns the inclusive lower bound and exclusive upper bound of the generator.
func (g *RangeGenerator[T]) Bounds() (T, T) {
	return g.min, g.max
}

// Generate returns the next value in [min, max).
func (g *RangeGenerator[T]) Generate() T {
	// The offset is truncated to T before adding so signed bounds wrap back into range
	return g.min + T(g.source.Uint64n(g.span))
}

// FullRangeGenerator draws integers uniformly from the entire domain of T.
type FullRangeGenerator[T constraints.Integer] struct {
	// source provides the random stream for this generator.
	source *Source
}

// NewFullRangeGenerator creates a FullRangeGenerator seeded with the provided seed.
func NewFullRangeGenerator[T constraints.Integer](seed uint64) *FullRangeGenerator[T] {
	return &FullRangeGenerator[T]{
		source: NewSource(seed),
	}
}

// Generate returns the next value of T, including its minimum and maximum with non-zero probability.
func (g *FullRangeGenerator[T]) Generate() T {
	return T(g.source.Uint64())
}

// Package generator provides seeded, deterministic value generators used by generated harness tests. Every generator
// owns an independent pseudo-random stream derived from a 64-bit seed, so two generators of the same kind built from
// the same seed (and bounds) produce identical sequences across processes.
package generator

import (
	"math/bits"
	"math/rand/v2"
)

// streamSelector is the fixed second PCG seed word shared by all sources. Changing it changes every generated
// sequence, so it must stay constant for seeds to remain reproducible.
const streamSelector uint64 = 0xda3e39cb94b95bdb

// Source describes a deterministic 64-bit pseudo-random stream. It is not safe for concurrent use.
type Source struct {
	// pcg is the underlying PCG-DXSM generator. Its output for a given state is fixed by the algorithm.
	pcg *rand.PCG
}

// NewSource creates a Source whose output is fully determined by the provided seed.
func NewSource(seed uint64) *Source {
	// Nearby seeds (base seed + parameter index) are spread over the whole state space before seeding
	return &Source{
		pcg: rand.NewPCG(mix64(seed), mix64(seed^streamSelector)),
	}
}

// Uint64 returns the next 64 bits of the stream.
func (s *Source) Uint64() uint64 {
	return s.pcg.Uint64()
}

// Uint64n returns a uniformly distributed value in [0, n). It panics if n is zero.
func (s *Source) Uint64n(n uint64) uint64 {
	if n == 0 {
		panic("generator: Uint64n called with n == 0")
	}

	// Lemire's multiply-shift reduction, rejecting the biased low region
	hi, lo := bits.Mul64(s.Uint64(), n)
	if lo < n {
		threshold := -n % n
		for lo < threshold {
			hi, lo = bits.Mul64(s.Uint64(), n)
		}
	}
	return hi
}

// mix64 is the SplitMix64 finalizer.
func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

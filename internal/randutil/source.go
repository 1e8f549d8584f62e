package randutil

import (
	"math"
	"math/rand/v2"
)

// Source is a seeded random generator. A StreamParticleFilter owns one
// for the motion model's noise terms, the resampler's draws, and the
// recovery sampler's Metropolis proposals; the status initializer draws
// from the Source it was constructed with. Fixed seeds give a run
// determinism, matching the "train is deterministic given samples and a
// fixed seed" property.
type Source struct {
	rng *rand.Rand
}

// New returns a Source seeded deterministically from seed.
func New(seed uint64) *Source {
	return &Source{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Uniform returns a draw from U[lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}

// Uniform01 returns a draw from U[0, 1).
func (s *Source) Uniform01() float64 {
	return s.rng.Float64()
}

// IntN returns a uniform draw from [0, n).
func (s *Source) IntN(n int) int {
	return s.rng.IntN(n)
}

// Gaussian returns a draw from Normal(mu, sigma) via the Box-Muller
// transform. sigma <= 0 returns mu exactly.
func (s *Source) Gaussian(mu, sigma float64) float64 {
	if sigma <= 0 {
		return mu
	}
	return mu + sigma*s.standardNormal()
}

func (s *Source) standardNormal() float64 {
	// Avoid u1 == 0, which would make log(u1) = -Inf.
	var u1 float64
	for u1 == 0 {
		u1 = s.rng.Float64()
	}
	u2 := s.rng.Float64()
	r := math.Sqrt(-2 * math.Log(u1))
	return r * math.Cos(2*math.Pi*u2)
}

// TruncatedGaussian returns a draw from Normal(mu, sigma) conditioned on
// lying in [lo, hi], via rejection sampling. If no draw lands in range
// within maxAttempts, mu clamped to [lo, hi] is returned.
func (s *Source) TruncatedGaussian(mu, sigma, lo, hi float64) float64 {
	const maxAttempts = 1000
	if lo > hi {
		lo, hi = hi, lo
	}
	for i := 0; i < maxAttempts; i++ {
		v := s.Gaussian(mu, sigma)
		if v >= lo && v <= hi {
			return v
		}
	}
	return math.Min(hi, math.Max(lo, mu))
}

// SampleIndices draws k indices without replacement from [0, n) using
// partial Fisher-Yates, uniformly over all k-subsets. Panics if k > n.
func (s *Source) SampleIndices(n, k int) []int {
	if k > n {
		panic("randutil: SampleIndices k > n")
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	out := make([]int, k)
	copy(out, pool[:k])
	return out
}

// WeightedIndex draws a single index from [0, len(weights)) with
// probability proportional to weights[i]. weights need not be
// normalized; it must sum to a positive value.
func (s *Source) WeightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return s.rng.IntN(len(weights))
	}
	target := s.Uniform(0, total)
	var cum float64
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}

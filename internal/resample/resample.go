package resample

import (
	"fmt"
	"math"

	"github.com/banshee-data/bleloc/internal/randutil"
)

// Normalize rescales weights so they sum to 1, in place, and returns an
// error if the total is non-positive (every weight collapsed to zero).
func Normalize(weights []float64) error {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("resample: weights sum to %v, cannot normalize", sum)
	}
	for i := range weights {
		weights[i] /= sum
	}
	return nil
}

// NormalizeLogWeights turns log-weights into normalized linear weights via
// the standard max-subtraction trick: w_i = exp(logW_i - max) / sum.
func NormalizeLogWeights(logWeights []float64) []float64 {
	if len(logWeights) == 0 {
		return nil
	}
	max := logWeights[0]
	for _, lw := range logWeights[1:] {
		if lw > max {
			max = lw
		}
	}
	out := make([]float64, len(logWeights))
	var sum float64
	for i, lw := range logWeights {
		v := expClamped(lw - max)
		out[i] = v
		sum += v
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

// EffectiveSampleSize returns N_eff = 1 / sum(w_i^2) for normalized
// weights.
func EffectiveSampleSize(weights []float64) float64 {
	var sumSq float64
	for _, w := range weights {
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	return 1 / sumSq
}

// Systematic performs low-variance (systematic) resampling: starting from
// u0, it walks the cumulative weight array once with pointers
// u_k = u0 + k/N, returning the index selected for each pointer.
// u0 must lie in [0, 1/N). Exposed directly (rather than only through a
// seeded-random wrapper) so the deterministic resampling scenario can be
// tested exactly.
func Systematic(weights []float64, u0 float64) []int {
	n := len(weights)
	out := make([]int, n)
	var cum float64
	j := 0
	for k := 0; k < n; k++ {
		u := u0 + float64(k)/float64(n)
		for j < n-1 && cum+weights[j] < u {
			cum += weights[j]
			j++
		}
		out[k] = j
	}
	return out
}

// SystematicResample draws u0 uniformly from [0, 1/N) using rng and
// returns the systematic resample indices.
func SystematicResample(weights []float64, rng *randutil.Source) []int {
	n := len(weights)
	if n == 0 {
		return nil
	}
	u0 := rng.Uniform(0, 1/float64(n))
	return Systematic(weights, u0)
}

func expClamped(x float64) float64 {
	if x < -745 { // below this, math.Exp underflows to 0 anyway
		return 0
	}
	return math.Exp(x)
}

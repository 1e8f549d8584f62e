package resample

import (
	"sort"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/randutil"
)

// gridKey buckets a particle by (floor(x/g), floor(y/g), floor index).
type gridKey struct {
	gx, gy, floor int
}

func bucketOf(loc geometry.Location, gridSize float64) gridKey {
	return gridKey{
		gx:    int(floorDiv(loc.X, gridSize)),
		gy:    int(floorDiv(loc.Y, gridSize)),
		floor: loc.FloorIndex(),
	}
}

func floorDiv(v, size float64) float64 {
	if size <= 0 {
		return 0
	}
	q := v / size
	t := float64(int(q))
	if q < 0 && t != q {
		return t - 1 // mimic math.Floor for negative v without importing math here
	}
	return t
}

// GridResample bins particles by spatial bucket, then resamples within
// each bucket proportionally to the bucket's total weight, preserving
// spatial diversity that a single global systematic resample could
// collapse (e.g. two separated rooms each holding a plausible hypothesis).
// The number of particles drawn from each bucket is itself chosen via
// systematic resampling over the bucket weight totals, so the overall
// particle count is preserved exactly.
func GridResample(weights []float64, locations []geometry.Location, gridSize float64, rng *randutil.Source) []int {
	n := len(weights)
	if n == 0 {
		return nil
	}

	buckets := make(map[gridKey][]int)
	for i, loc := range locations {
		k := bucketOf(loc, gridSize)
		buckets[k] = append(buckets[k], i)
	}

	keys := make([]gridKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	// Map iteration order is randomized; sort so the RNG draws below
	// (allocateCounts, then the per-bucket systematic/uniform/IntN calls)
	// happen in a fixed sequence for a given seed.
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.floor != b.floor {
			return a.floor < b.floor
		}
		if a.gx != b.gx {
			return a.gx < b.gx
		}
		return a.gy < b.gy
	})

	bucketWeights := make([]float64, 0, len(buckets))
	for _, k := range keys {
		var w float64
		for _, i := range buckets[k] {
			w += weights[i]
		}
		bucketWeights = append(bucketWeights, w)
	}

	bucketCounts := allocateCounts(bucketWeights, n, rng)

	out := make([]int, 0, n)
	for bi, k := range keys {
		idxs := buckets[k]
		localWeights := make([]float64, len(idxs))
		var localSum float64
		for j, i := range idxs {
			localWeights[j] = weights[i]
			localSum += weights[i]
		}
		count := bucketCounts[bi]
		if count == 0 {
			continue
		}
		if localSum <= 0 {
			for c := 0; c < count; c++ {
				out = append(out, idxs[rng.IntN(len(idxs))])
			}
			continue
		}
		for i := range localWeights {
			localWeights[i] /= localSum
		}
		u0 := rng.Uniform(0, 1/float64(count))
		local := systematicN(localWeights, u0, count)
		for _, li := range local {
			out = append(out, idxs[li])
		}
	}
	return out
}

// systematicN is Systematic generalized to draw m <= len(weights) indices
// instead of exactly len(weights), used to allocate a bucket's share of
// the overall particle count.
func systematicN(weights []float64, u0 float64, m int) []int {
	n := len(weights)
	out := make([]int, m)
	var cum float64
	j := 0
	for k := 0; k < m; k++ {
		u := u0 + float64(k)/float64(m)
		for j < n-1 && cum+weights[j] < u {
			cum += weights[j]
			j++
		}
		out[k] = j
	}
	return out
}

// allocateCounts distributes n total draws across buckets proportionally
// to bucketWeights via systematic resampling over the bucket totals
// (after normalizing), so each bucket's count is within one of its
// expected share n*weight; a bucket whose share is below one draw may get
// none.
func allocateCounts(bucketWeights []float64, n int, rng *randutil.Source) []int {
	normalized := append([]float64(nil), bucketWeights...)
	if err := Normalize(normalized); err != nil {
		// every bucket weight was zero/invalid: spread draws evenly.
		counts := make([]int, len(bucketWeights))
		for i := 0; i < n; i++ {
			counts[i%len(counts)]++
		}
		return counts
	}
	u0 := rng.Uniform(0, 1/float64(n))
	picks := Systematic(normalized, u0)
	counts := make([]int, len(bucketWeights))
	for _, p := range picks {
		counts[p]++
	}
	return counts
}

package resample

import (
	"testing"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/randutil"
	"github.com/stretchr/testify/require"
)

func TestSystematic_LiteralScenario(t *testing.T) {
	weights := []float64{0.1, 0.1, 0.7, 0.1}
	got := Systematic(weights, 0.1)
	want := []int{0, 2, 2, 2}
	require.Equal(t, want, got)
}

func TestEffectiveSampleSize_Uniform(t *testing.T) {
	weights := []float64{0.25, 0.25, 0.25, 0.25}
	require.InDelta(t, 4.0, EffectiveSampleSize(weights), 1e-9)
}

func TestEffectiveSampleSize_Degenerate(t *testing.T) {
	weights := []float64{1, 0, 0, 0}
	require.InDelta(t, 1.0, EffectiveSampleSize(weights), 1e-9)
}

func TestNormalize_SumsToOne(t *testing.T) {
	weights := []float64{1, 1, 2}
	require.NoError(t, Normalize(weights))
	var sum float64
	for _, w := range weights {
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestNormalize_RejectsZeroTotal(t *testing.T) {
	weights := []float64{0, 0, 0}
	require.Error(t, Normalize(weights), "expected error normalizing all-zero weights")
}

func TestNormalizeLogWeights_MatchesDirectNormalization(t *testing.T) {
	logW := []float64{-1, -2, -0.5}
	got := NormalizeLogWeights(logW)
	var sum float64
	for _, w := range got {
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestGridResample_PreservesTotalCount(t *testing.T) {
	rng := randutil.New(1)
	weights := make([]float64, 40)
	locs := make([]geometry.Location, 40)
	for i := range weights {
		weights[i] = 1.0 / 40
		if i < 20 {
			locs[i] = geometry.Location{X: 1, Y: 1, Floor: 0}
		} else {
			locs[i] = geometry.Location{X: 50, Y: 50, Floor: 0}
		}
	}
	idx := GridResample(weights, locs, 5, rng)
	require.Len(t, idx, 40)
}

func TestGridResample_PreservesBothClusters(t *testing.T) {
	rng := randutil.New(2)
	weights := make([]float64, 40)
	locs := make([]geometry.Location, 40)
	for i := range weights {
		if i < 20 {
			weights[i] = 0.001
			locs[i] = geometry.Location{X: 1, Y: 1, Floor: 0}
		} else {
			weights[i] = 0.049
			locs[i] = geometry.Location{X: 50, Y: 50, Floor: 0}
		}
	}
	idx := GridResample(weights, locs, 5, rng)
	hasNear, hasFar := false, false
	for _, i := range idx {
		if i < 20 {
			hasNear = true
		} else {
			hasFar = true
		}
	}
	require.True(t, hasNear, "expected grid resample to keep a representative from the near cluster")
	require.True(t, hasFar, "expected grid resample to keep a representative from the far cluster")
}

func TestGridResample_DeterministicAcrossRepeatedCalls(t *testing.T) {
	weights := make([]float64, 60)
	locs := make([]geometry.Location, 60)
	for i := range weights {
		weights[i] = 1.0 / 60
		cluster := i % 6
		locs[i] = geometry.Location{X: float64(cluster * 50), Y: float64(cluster * 50), Floor: 0}
	}

	first := GridResample(weights, locs, 5, randutil.New(11))
	for trial := 0; trial < 20; trial++ {
		got := GridResample(weights, locs, 5, randutil.New(11))
		require.Equal(t, first, got, "GridResample produced a different result from the same seed on trial %d", trial)
	}
}

func TestConfig_ShouldResample(t *testing.T) {
	cfg := DefaultConfig()
	uniform := []float64{0.25, 0.25, 0.25, 0.25}
	require.False(t, cfg.ShouldResample(uniform), "expected uniform weights (N_eff=N) not to trigger resampling")
	skewed := []float64{0.97, 0.01, 0.01, 0.01}
	require.True(t, cfg.ShouldResample(skewed), "expected highly skewed weights to trigger resampling")
}

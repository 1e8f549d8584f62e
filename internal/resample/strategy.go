package resample

import (
	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/randutil"
)

// Strategy is a resampling function: given normalized weights and each
// particle's location, it returns the index to draw into each output
// slot. Dispatched once per update rather than through a class hierarchy,
// per the "small capability table" redesign.
type Strategy func(weights []float64, locations []geometry.Location, rng *randutil.Source) []int

// Kind names a built-in strategy for configuration purposes.
type Kind string

const (
	KindSystematic Kind = "systematic"
	KindGrid       Kind = "grid"
)

// Config configures resampling: when to trigger it and, for the grid
// strategy, the bucket size.
type Config struct {
	Kind         Kind
	AlphaWeaken  float64 // resample when N_eff < AlphaWeaken * N
	GridSize     float64 // meters per bucket, used only by KindGrid
}

// DefaultConfig selects systematic resampling at the conventional alpha
// of 0.5.
func DefaultConfig() Config {
	return Config{Kind: KindSystematic, AlphaWeaken: 0.5, GridSize: 5}
}

// Select returns the Strategy function for cfg.Kind.
func (c Config) Select() Strategy {
	switch c.Kind {
	case KindGrid:
		return func(weights []float64, locations []geometry.Location, rng *randutil.Source) []int {
			return GridResample(weights, locations, c.GridSize, rng)
		}
	default:
		return func(weights []float64, locations []geometry.Location, rng *randutil.Source) []int {
			return SystematicResample(weights, rng)
		}
	}
}

// ShouldResample reports whether the effective sample size over weights
// has fallen below the configured threshold.
func (c Config) ShouldResample(weights []float64) bool {
	n := float64(len(weights))
	if n == 0 {
		return false
	}
	return EffectiveSampleSize(weights) < c.AlphaWeaken*n
}

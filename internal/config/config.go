package config

import (
	"fmt"

	"github.com/banshee-data/bleloc/internal/motion"
	"github.com/banshee-data/bleloc/internal/observation"
	"github.com/banshee-data/bleloc/internal/recovery"
	"github.com/banshee-data/bleloc/internal/resample"
	"github.com/banshee-data/bleloc/internal/seed"
)

// Config is the complete enumerated runtime configuration a Stream
// Particle Filter is constructed from.
type Config struct {
	NStates                             int
	MixtureProbability                  float64 // per-scan fraction of particles replaced by recovery draws
	UsesObservationDependentInitializer bool

	Motion      motion.Config
	Resample    resample.Config
	Recovery    recovery.Config
	Observation observation.Config
	Priors      seed.Priors

	Seed uint64 // RNG seed, for reproducibility under a fixed run
}

// Default returns a Config with the conventional defaults for every
// sub-component.
func Default() Config {
	return Config{
		NStates:                             1000,
		MixtureProbability:                  0.05,
		UsesObservationDependentInitializer: true,
		Motion:                              motion.DefaultConfig(),
		Resample:                            resample.DefaultConfig(),
		Recovery:                            recovery.DefaultConfig(),
		Observation:                         observation.DefaultConfig(),
		Priors: seed.Priors{
			MeanVelocity: 1.0,
			StdVelocity:  0.3,
			MinVelocity:  0.1,
			MaxVelocity:  2.0,
			MeanRSSIBias: 0,
			StdRSSIBias:  2,
			MinRSSIBias:  -10,
			MaxRSSIBias:  10,
		},
		Seed: 1,
	}
}

// Validate checks the motion and observation configurations, the resample
// threshold, the prior velocity bounds, and the top-level fields. The
// recovery configuration is not checked.
func (c Config) Validate() error {
	if c.NStates <= 0 {
		return fmt.Errorf("config: nStates must be positive, got %d", c.NStates)
	}
	if err := c.Motion.Validate(); err != nil {
		return err
	}
	if err := c.Observation.Validate(); err != nil {
		return err
	}
	if c.Resample.AlphaWeaken <= 0 || c.Resample.AlphaWeaken > 1 {
		return fmt.Errorf("config: resample.alphaWeaken must be in (0,1], got %v", c.Resample.AlphaWeaken)
	}
	if c.Priors.MinVelocity > c.Priors.MaxVelocity {
		return fmt.Errorf("config: priors.minVelocity exceeds priors.maxVelocity")
	}
	if c.MixtureProbability < 0 || c.MixtureProbability > 1 {
		return fmt.Errorf("config: mixtureProbability must be in [0,1], got %v", c.MixtureProbability)
	}
	return nil
}

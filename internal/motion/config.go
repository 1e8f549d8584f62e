package motion

import "fmt"

// Config holds the per-particle motion model's noise and rejection
// parameters.
type Config struct {
	StdOrientation    float64 // heading noise, radians
	StdDiffVelocity   float64 // velocity diffusion on a step, m/s
	MinVelocity       float64
	MaxVelocity       float64
	StdRSSIBiasDiff   float64 // rssiBias diffusion rate, dBm per sqrt(second)
	MinRSSIBias       float64
	MaxRSSIBias       float64
	StdOrientationBiasDiff float64 // orientationBias diffusion rate, radians per sqrt(second)

	WeightDecayRate      float64 // multiplier applied on a rejected proposal
	MaxIncidenceAngle    float64 // radians; steeper incidence is rejected as a wall crossing
	AngularVelocityLimit float64 // radians/second, clamps orientation change between steps

	// RandomWalker disables the off-map and wall-crossing rejection — a
	// debug mode for exercising the filter without a building map. The
	// noise parameters above are used unchanged in this mode.
	RandomWalker bool
}

// DefaultConfig mirrors typical indoor pedestrian-dead-reckoning scales.
func DefaultConfig() Config {
	return Config{
		StdOrientation:         0.15,
		StdDiffVelocity:        0.2,
		MinVelocity:            0.1,
		MaxVelocity:            2.0,
		StdRSSIBiasDiff:        0.2,
		MinRSSIBias:            -10,
		MaxRSSIBias:            10,
		StdOrientationBiasDiff: 0.05,
		WeightDecayRate:        0.1,
		MaxIncidenceAngle:      1.3,
		AngularVelocityLimit:   3.0,
		RandomWalker:           false,
	}
}

// Validate range-checks the configuration.
func (c Config) Validate() error {
	if c.MinVelocity > c.MaxVelocity {
		return fmt.Errorf("motion: minVelocity %v exceeds maxVelocity %v", c.MinVelocity, c.MaxVelocity)
	}
	if c.MinRSSIBias > c.MaxRSSIBias {
		return fmt.Errorf("motion: minRssiBias %v exceeds maxRssiBias %v", c.MinRSSIBias, c.MaxRSSIBias)
	}
	if c.WeightDecayRate < 0 || c.WeightDecayRate > 1 {
		return fmt.Errorf("motion: weightDecayRate must be in [0,1], got %v", c.WeightDecayRate)
	}
	if c.MaxIncidenceAngle <= 0 {
		return fmt.Errorf("motion: maxIncidenceAngle must be positive, got %v", c.MaxIncidenceAngle)
	}
	return nil
}

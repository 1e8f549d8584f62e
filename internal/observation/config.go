package observation

import "fmt"

// Config holds the observation model's fitting and likelihood parameters.
type Config struct {
	MinRSSI        float64
	DistanceOffset float64

	// CoeffDiffFloorStdev scales a beacon's noise stdev when the query
	// state sits on a different floor than the beacon.
	CoeffDiffFloorStdev float64

	// ConsiderBias enables subtracting state.RSSIBias from observed
	// readings before scoring them against the model.
	ConsiderBias bool

	// TDistributionDF >= 1 swaps the Gaussian likelihood for Student-t
	// with this many degrees of freedom. A value < 1 means Gaussian.
	TDistributionDF float64

	// FillsUnknownBeaconRssi, when true, scores scanned beacons that
	// aren't in the beacon registry at their observed RSSI under
	// Normal(MinRSSI, UnknownBeaconStdev) instead of skipping them.
	FillsUnknownBeaconRssi bool

	// IRLS fitting parameters for fitITUModel's shared-prior update.
	Lambda  [4]float64
	Rho     [4]float64
	Tol     float64
	MaxIter int

	// PriorTheta seeds theta0 before the first IRLS sweep.
	PriorTheta [4]float64
}

// DefaultConfig mirrors ble-locoppp's conventional defaults: a -100 dBm
// floor, 1 meter minimum distance, and a loose shared prior.
func DefaultConfig() Config {
	return Config{
		MinRSSI:                -100,
		DistanceOffset:         1,
		CoeffDiffFloorStdev:    2,
		ConsiderBias:           false,
		TDistributionDF:        0,
		FillsUnknownBeaconRssi: true,
		Lambda:                 [4]float64{0.1, 0.1, 0.1, 0.1},
		Rho:                    [4]float64{0.01, 0.01, 0.01, 0.01},
		Tol:                    1e-4,
		MaxIter:                100,
		PriorTheta:             [4]float64{-20, -40, 0, 0},
	}
}

// Validate range-checks the configuration.
func (c Config) Validate() error {
	if c.DistanceOffset <= 0 {
		return fmt.Errorf("observation: distanceOffset must be positive, got %v", c.DistanceOffset)
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("observation: maxIter must be positive, got %d", c.MaxIter)
	}
	if c.Tol <= 0 {
		return fmt.Errorf("observation: tol must be positive, got %v", c.Tol)
	}
	if c.CoeffDiffFloorStdev < 1 {
		return fmt.Errorf("observation: coeffDiffFloorStdev must be >= 1, got %v", c.CoeffDiffFloorStdev)
	}
	return nil
}

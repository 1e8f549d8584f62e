package seed

import (
	"fmt"
	"math"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/randutil"
	"github.com/google/uuid"
)

// Priors collects the pose and bias prior parameters the initializer draws
// from. Zero-valued fields for MinRSSIBias/MaxRSSIBias disable clamping.
type Priors struct {
	MeanVelocity float64
	StdVelocity  float64
	MinVelocity  float64
	MaxVelocity  float64

	MeanRSSIBias float64
	StdRSSIBias  float64
	MinRSSIBias  float64
	MaxRSSIBias  float64
}

// Movable abstracts the walkability predicate the initializer rejects
// samples against; geometry.Building satisfies it.
type Movable interface {
	IsMovable(loc geometry.Location) bool
}

// StatusInitializer draws particle states from the set of unique,
// walkable training-sample locations.
type StatusInitializer struct {
	locations []geometry.Location
	sampleIDs []uuid.UUID
	building  Movable
	priors    Priors
	rng       *randutil.Source
}

// New builds a StatusInitializer from training samples, filtering out
// samples that do not sit on a movable pixel and deduplicating the
// remaining locations. Returns a configuration error if no movable
// unique location remains.
func New(samples []geometry.Sample, building Movable, priors Priors, rng *randutil.Source) (*StatusInitializer, error) {
	seen := make(map[geometry.Location]bool)
	var locations []geometry.Location
	var sampleIDs []uuid.UUID
	for _, s := range samples {
		if !building.IsMovable(s.Location) {
			continue
		}
		if seen[s.Location] {
			continue
		}
		seen[s.Location] = true
		locations = append(locations, s.Location)
		sampleIDs = append(sampleIDs, s.ID)
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("seed: zero movable unique sample locations")
	}
	return &StatusInitializer{locations: locations, sampleIDs: sampleIDs, building: building, priors: priors, rng: rng}, nil
}

// Locations returns the deduplicated, movable sample locations backing
// this initializer.
func (si *StatusInitializer) Locations() []geometry.Location {
	out := make([]geometry.Location, len(si.locations))
	copy(out, si.locations)
	return out
}

// Sample draws N states: locations are picked uniformly without
// replacement when N <= len(locations), and uniformly with replacement
// otherwise (the training set is typically much larger than N in
// practice, but a tiny survey should not make seeding fail).
func (si *StatusInitializer) Sample(n int) []geometry.State {
	states := make([]geometry.State, n)
	if n <= len(si.locations) {
		idx := si.rng.SampleIndices(len(si.locations), n)
		for i, li := range idx {
			states[i] = si.stateAt(si.locations[li], si.sampleIDs[li], float64(1)/float64(n))
		}
		return states
	}
	for i := range states {
		li := si.rng.IntN(len(si.locations))
		states[i] = si.stateAt(si.locations[li], si.sampleIDs[li], float64(1)/float64(n))
	}
	return states
}

func (si *StatusInitializer) stateAt(loc geometry.Location, sampleID uuid.UUID, weight float64) geometry.State {
	orientation := si.rng.Uniform(0, 2*math.Pi)
	normalVelocity := si.rng.TruncatedGaussian(si.priors.MeanVelocity, si.priors.StdVelocity, si.priors.MinVelocity, si.priors.MaxVelocity)
	pose := geometry.Pose{
		Location:       loc,
		Orientation:    orientation,
		Velocity:       0,
		NormalVelocity: normalVelocity,
	}
	rssiBias := si.rng.Gaussian(si.priors.MeanRSSIBias, si.priors.StdRSSIBias)
	if si.priors.MaxRSSIBias > si.priors.MinRSSIBias {
		rssiBias = math.Min(si.priors.MaxRSSIBias, math.Max(si.priors.MinRSSIBias, rssiBias))
	}
	return geometry.State{
		Pose:            pose,
		OrientationBias: si.rng.Uniform(0, 2*math.Pi),
		RSSIBias:        rssiBias,
		Weight:          weight,
		OriginSampleID:  sampleID,
	}
}

// ResetStates draws N states centered on meanPose with per-axis Gaussian
// jitter (sigma given by stdevPose, applied independently to X and Y),
// rejecting and redrawing until the candidate lands on a movable pixel.
// Every returned state's orientation is the jittered draw, and its
// orientationBias is set to measuredOrientation minus that orientation —
// the original orientationBias is discarded entirely, matching the
// behavior of reseeding against a freshly measured heading rather than
// carrying forward stale bias estimates from before the reset.
func (si *StatusInitializer) ResetStates(n int, meanPose geometry.Pose, stdevPose geometry.Location, measuredOrientation float64) []geometry.State {
	const maxAttempts = 1000
	states := make([]geometry.State, n)
	weight := float64(1) / float64(n)
	for i := 0; i < n; i++ {
		var loc geometry.Location
		for attempt := 0; attempt < maxAttempts; attempt++ {
			loc = geometry.Location{
				X:     si.rng.Gaussian(meanPose.X, stdevPose.X),
				Y:     si.rng.Gaussian(meanPose.Y, stdevPose.Y),
				Z:     meanPose.Z,
				Floor: meanPose.Floor,
			}
			if si.building.IsMovable(loc) {
				break
			}
		}
		orientation := geometry.WrapOrientation(si.rng.Gaussian(meanPose.Orientation, 0.1))
		states[i] = geometry.State{
			Pose: geometry.Pose{
				Location:       loc,
				Orientation:    orientation,
				Velocity:       meanPose.Velocity,
				NormalVelocity: meanPose.NormalVelocity,
			},
			OrientationBias: measuredOrientation - orientation,
			RSSIBias:        si.rng.Gaussian(si.priors.MeanRSSIBias, si.priors.StdRSSIBias),
			Weight:          weight,
		}
	}
	return states
}

package motion

import (
	"math"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/randutil"
)

// Building is the subset of geometry.Building's contract the motion
// model needs. geometry.Building satisfies it directly.
type Building interface {
	IsValid(loc geometry.Location) bool
	IsStair(loc geometry.Location) bool
	IsElevator(loc geometry.Location) bool
	CheckCrossingWall(start, end geometry.Location) bool
	EstimateWallAngle(start, end geometry.Location) (angle float64, ok bool)
}

// Input is one time step's inertial evidence.
type Input struct {
	DeltaT          float64 // seconds since the previous step, must be > 0
	StepDetected    bool
	HeadingMeasured float64 // radians
	// FloorChangeCue is an externally supplied signal (e.g. from an
	// altimeter or a barometric-pressure trend) indicating the device has
	// moved to a different floor. The motion model never infers a floor
	// change from position alone.
	FloorChangeCue bool
	FloorDelta     int // signed floor index change to apply when the cue fires
}

// Model is the step-driven pose random walker.
type Model struct {
	cfg Config
}

// New validates cfg and returns a Model.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

// Step advances state by one inertial input, rejecting the proposal (and
// decaying its weight) if it would leave the map, cross a wall at too
// steep an incidence angle, or otherwise violate the building. The
// previous orientation is tracked via prevOrientation for angular
// velocity clamping; pass the state's own current orientation on the
// first call.
func (m *Model) Step(state geometry.State, input Input, prevOrientation float64, building Building, rng *randutil.Source) geometry.State {
	next := state

	heading := input.HeadingMeasured - state.OrientationBias + rng.Gaussian(0, m.cfg.StdOrientation)
	heading = clampAngularVelocity(prevOrientation, heading, m.cfg.AngularVelocityLimit, input.DeltaT)
	next.Orientation = geometry.WrapOrientation(heading)

	if input.StepDetected {
		v := state.NormalVelocity + rng.Gaussian(0, m.cfg.StdDiffVelocity)
		v = math.Min(m.cfg.MaxVelocity, math.Max(m.cfg.MinVelocity, v))
		next.Velocity = v
	} else {
		next.Velocity = 0
	}

	proposed := next.Location
	if input.StepDetected {
		displacement := next.Velocity * input.DeltaT
		proposed.X += displacement * math.Cos(next.Orientation)
		proposed.Y += displacement * math.Sin(next.Orientation)
	}

	if !m.cfg.RandomWalker {
		if !building.IsValid(proposed) {
			next.Weight = state.Weight * m.cfg.WeightDecayRate
			proposed = state.Location
		} else if building.CheckCrossingWall(state.Location, proposed) {
			wallAngle, ok := building.EstimateWallAngle(state.Location, proposed)
			incidence := math.Pi / 2
			if ok {
				incidence = math.Abs(wrapToPi(next.Orientation - wallAngle - math.Pi/2))
			}
			if incidence > m.cfg.MaxIncidenceAngle {
				next.Weight = state.Weight * m.cfg.WeightDecayRate
				proposed = state.Location
			}
		}
	}
	next.Location = proposed

	if input.FloorChangeCue && (building.IsStair(state.Location) || building.IsElevator(state.Location)) {
		next.Floor = state.Floor + float64(input.FloorDelta)
	}

	next.RSSIBias = state.RSSIBias + rng.Gaussian(0, m.cfg.StdRSSIBiasDiff*math.Sqrt(input.DeltaT))
	next.RSSIBias = math.Min(m.cfg.MaxRSSIBias, math.Max(m.cfg.MinRSSIBias, next.RSSIBias))

	obiasDelta := rng.Gaussian(0, m.cfg.StdOrientationBiasDiff*math.Sqrt(input.DeltaT))
	next.OrientationBias = geometry.WrapOrientation(state.OrientationBias + obiasDelta)

	return next
}

func clampAngularVelocity(prev, proposed, limit, deltaT float64) float64 {
	if limit <= 0 || deltaT <= 0 {
		return proposed
	}
	diff := wrapToPi(proposed - prev)
	maxDelta := limit * deltaT
	if diff > maxDelta {
		diff = maxDelta
	} else if diff < -maxDelta {
		diff = -maxDelta
	}
	return prev + diff
}

func wrapToPi(theta float64) float64 {
	for theta > math.Pi {
		theta -= 2 * math.Pi
	}
	for theta < -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}

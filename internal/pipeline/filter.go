package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/bleloc/internal/config"
	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/motion"
	"github.com/banshee-data/bleloc/internal/observation"
	"github.com/banshee-data/bleloc/internal/randutil"
	"github.com/banshee-data/bleloc/internal/recovery"
	"github.com/banshee-data/bleloc/internal/resample"
	"github.com/banshee-data/bleloc/internal/seed"
	"github.com/banshee-data/bleloc/internal/telemetry"
	"github.com/google/uuid"
)

// ErrCancelled is returned when a cooperative cancellation is observed
// mid-update. The filter's state is left exactly as it was before the call.
var ErrCancelled = errors.New("pipeline: cancelled")

// ErrOutOfOrder is returned when an event's timestamp does not advance
// monotonically within its own stream, or when the implied delta-t between
// two accelerometer events is not strictly positive.
var ErrOutOfOrder = errors.New("pipeline: event out of order")

// Building is the subset of geometry.Building's contract the orchestrator
// itself needs, beyond what it hands down to motion/seed/recovery.
type Building interface {
	motion.Building
	seed.Movable
	recovery.Movable
}

// Estimate is a single pose fix emitted after processing a beacon scan.
type Estimate struct {
	RunID             uuid.UUID
	Timestamp         time.Time
	Pose              geometry.Pose
	NEff              float64
	Resampled         bool
	MeanLogLikelihood float64
}

// Params bundles the dependencies a StreamParticleFilter is built from.
type Params struct {
	Config        config.Config
	Building      Building
	Observation   *observation.Model
	Initializer   *seed.StatusInitializer
	BeaconFilters []BeaconFilter
}

// StreamParticleFilter is the streaming orchestrator: it owns the particle
// vector and the references needed to predict, score, resample, and
// recover it as inertial and beacon events arrive.
type StreamParticleFilter struct {
	cfg           config.Config
	building      Building
	motion        *motion.Model
	observation   *observation.Model
	initializer   *seed.StatusInitializer
	resampleSel   resample.Strategy
	recoverer     *recovery.Sampler
	beaconFilters []BeaconFilter
	rng           *randutil.Source
	runID         uuid.UUID

	particles       []geometry.State
	weights         []float64
	logWeights      []float64
	prevOrientation []float64

	lastOrientation   float64
	lastInertialTime  time.Time
	haveInertial      bool
	lastAccelTime     time.Time
	havePredictAnchor bool
	pendingFloorCue   bool
	pendingFloorDelta int
}

// New validates cfg and constructs a StreamParticleFilter with its initial
// particle set drawn from the status initializer.
func New(p Params) (*StreamParticleFilter, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	if p.Building == nil {
		return nil, fmt.Errorf("pipeline: building is required")
	}
	if p.Observation == nil {
		return nil, fmt.Errorf("pipeline: observation model is required")
	}
	if p.Initializer == nil {
		return nil, fmt.Errorf("pipeline: status initializer is required")
	}

	motionModel, err := motion.New(p.Config.Motion)
	if err != nil {
		return nil, err
	}

	n := p.Config.NStates
	particles := p.Initializer.Sample(n)
	prevOrientation := make([]float64, n)
	weights := make([]float64, n)
	logWeights := make([]float64, n)
	for i, s := range particles {
		prevOrientation[i] = s.Orientation
		weights[i] = 1.0 / float64(n)
	}

	return &StreamParticleFilter{
		cfg:             p.Config,
		building:        p.Building,
		motion:          motionModel,
		observation:     p.Observation,
		initializer:     p.Initializer,
		resampleSel:     p.Config.Resample.Select(),
		recoverer:       recovery.New(p.Config.Recovery),
		beaconFilters:   p.BeaconFilters,
		rng:             randutil.New(p.Config.Seed),
		runID:           uuid.New(),
		particles:       particles,
		weights:         weights,
		logWeights:      logWeights,
		prevOrientation: prevOrientation,
	}, nil
}

// RunID identifies this filter instance's lifetime, for grouping every
// estimate it emits under one persisted run.
func (f *StreamParticleFilter) RunID() uuid.UUID {
	return f.runID
}

// Particles returns a copy of the current particle set, for diagnostics.
func (f *StreamParticleFilter) Particles() []geometry.State {
	out := make([]geometry.State, len(f.particles))
	copy(out, f.particles)
	return out
}

// SetFloorChangeCue arms a one-shot floor-transition cue (e.g. from an
// altimeter) to be consumed by the next predict step triggered by
// UpdateAcceleration. The motion model never infers a floor change from
// position alone; this is how a caller supplies that signal.
func (f *StreamParticleFilter) SetFloorChangeCue(floorDelta int) {
	f.pendingFloorCue = true
	f.pendingFloorDelta = floorDelta
}

// UpdateInertial feeds an orientation meter sample. It does not by itself
// advance the particle set; the heading is latched and applied by the next
// predict step UpdateAcceleration triggers.
func (f *StreamParticleFilter) UpdateInertial(timestamp time.Time, orientation float64) error {
	if f.haveInertial && !timestamp.After(f.lastInertialTime) {
		return ErrOutOfOrder
	}
	f.lastOrientation = orientation
	f.lastInertialTime = timestamp
	f.haveInertial = true
	return nil
}

// UpdateAcceleration feeds a pedometer sample. When stepDetected reports a
// step boundary, it invokes a predict step on every particle via the
// system model, using the delta-t since the previous accelerometer event.
// The first call in a session only establishes the time anchor and
// performs no predict step, since there is no prior timestamp to take a
// delta against.
func (f *StreamParticleFilter) UpdateAcceleration(timestamp time.Time, stepDetected bool) error {
	if !f.havePredictAnchor {
		f.lastAccelTime = timestamp
		f.havePredictAnchor = true
		return nil
	}
	deltaT := timestamp.Sub(f.lastAccelTime).Seconds()
	if deltaT <= 0 {
		return ErrOutOfOrder
	}

	input := motion.Input{
		DeltaT:          deltaT,
		StepDetected:    stepDetected,
		HeadingMeasured: f.lastOrientation,
		FloorChangeCue:  f.pendingFloorCue,
		FloorDelta:      f.pendingFloorDelta,
	}
	for i, s := range f.particles {
		next := f.motion.Step(s, input, f.prevOrientation[i], f.building, f.rng)
		f.prevOrientation[i] = next.Orientation
		f.particles[i] = next
	}

	f.pendingFloorCue = false
	f.pendingFloorDelta = 0
	f.lastAccelTime = timestamp
	return nil
}

// UpdateBeacons runs a beacon scan through the filter chain, scores and
// reweights every particle, resamples when the effective sample size has
// fallen too low, occasionally reseeds a fraction of particles via
// scan-conditioned recovery, and returns the resulting pose estimate.
//
// ctx is checked between the scoring and resampling stages so a very large
// particle count can be cancelled cooperatively; on cancellation the
// particle set and weights are left exactly as they were on entry.
func (f *StreamParticleFilter) UpdateBeacons(ctx context.Context, timestamp time.Time, scan []geometry.Beacon) (Estimate, error) {
	if err := ctx.Err(); err != nil {
		return Estimate{}, ErrCancelled
	}

	// Stage 1: cleanse and select the scan (cleansing -> strongest-K).
	filtered := ApplyChain(f.beaconFilters, scan)

	// Stage 2: score each particle under the observation model, then
	// accumulate the scores into the log-weights once the cancellation
	// check has passed. Log-weights persist across scans until the next
	// resample resets them, so a run of uninformative scans doesn't erase
	// the evidence accumulated by earlier ones.
	scanLogLikelihoods := make([]float64, len(f.particles))
	for i, s := range f.particles {
		scanLogLikelihoods[i] = f.observation.ComputeLogLikelihood(s, filtered).LogLikelihood
	}

	if err := ctx.Err(); err != nil {
		return Estimate{}, ErrCancelled
	}
	for i, ll := range scanLogLikelihoods {
		f.logWeights[i] += ll
	}

	// Stage 3: normalize.
	f.weights = resample.NormalizeLogWeights(f.logWeights)
	for i := range f.particles {
		f.particles[i].Weight = f.weights[i]
	}

	var meanLogLikelihood float64
	for i, w := range f.weights {
		meanLogLikelihood += w * scanLogLikelihoods[i]
	}

	nEff := resample.EffectiveSampleSize(f.weights)
	resampled := false

	// Stage 4: resample when the effective sample size has collapsed.
	if f.cfg.Resample.ShouldResample(f.weights) {
		locations := make([]geometry.Location, len(f.particles))
		for i, s := range f.particles {
			locations[i] = s.Location
		}
		indices := f.resampleSel(f.weights, locations, f.rng)
		f.rebuildFrom(indices)
		resampled = true
		telemetry.Diagf("[pipeline] resampled: n_eff=%.1f threshold=%.1f", nEff, f.cfg.Resample.AlphaWeaken*float64(len(f.particles)))
	}

	// Stage 5: scan-conditioned recovery mixture.
	if f.cfg.UsesObservationDependentInitializer && f.cfg.MixtureProbability > 0 {
		f.injectRecovery(filtered)
	}

	// Stage 6: emit the weighted pose estimate.
	pose := f.weightedMeanPose()
	return Estimate{
		RunID:             f.runID,
		Timestamp:         timestamp,
		Pose:              pose,
		NEff:              nEff,
		Resampled:         resampled,
		MeanLogLikelihood: meanLogLikelihood,
	}, nil
}

// rebuildFrom replaces the particle set with draws at the given indices
// and resets every weight (linear and log) to uniform.
func (f *StreamParticleFilter) rebuildFrom(indices []int) {
	n := len(f.particles)
	next := make([]geometry.State, n)
	nextPrevOrientation := make([]float64, n)
	uniform := 1.0 / float64(n)
	for i, idx := range indices {
		s := f.particles[idx]
		s.Weight = uniform
		next[i] = s
		nextPrevOrientation[i] = f.prevOrientation[idx]
	}
	f.particles = next
	f.prevOrientation = nextPrevOrientation
	for i := range f.weights {
		f.weights[i] = uniform
		f.logWeights[i] = 0
	}
}

// injectRecovery replaces a mixtureProbability-sized random fraction of
// particles with scan-conditioned draws burned in via Metropolis recovery
// over a candidate pool from the status initializer.
func (f *StreamParticleFilter) injectRecovery(scan []geometry.Beacon) {
	n := len(f.particles)
	replaceCount := int(math.Round(f.cfg.MixtureProbability * float64(n)))
	if replaceCount <= 0 {
		return
	}
	poolSize := replaceCount * 4
	if poolSize < 20 {
		poolSize = 20
	}
	candidates := f.initializer.Sample(poolSize)

	score := func(s geometry.State) float64 {
		return f.observation.ComputeLogLikelihood(s, scan).LogLikelihood
	}
	burned := f.recoverer.Run(candidates, f.building, score, f.rng)
	recovered := recovery.Sampling(burned, replaceCount)

	avgWeight := 0.0
	for _, w := range f.weights {
		avgWeight += w
	}
	avgWeight /= float64(n)

	replaceAt := f.rng.SampleIndices(n, replaceCount)
	for i, idx := range replaceAt {
		if i >= len(recovered) {
			break
		}
		s := recovered[i]
		s.Weight = avgWeight
		f.particles[idx] = s
		f.prevOrientation[idx] = s.Orientation
		f.weights[idx] = avgWeight
	}
	if err := resample.Normalize(f.weights); err == nil {
		for i := range f.particles {
			f.particles[i].Weight = f.weights[i]
			f.logWeights[i] = math.Log(f.weights[i])
		}
	}
	telemetry.Tracef("[pipeline] recovery injected %d/%d particles", replaceCount, n)
}

// weightedMeanPose computes the weighted mean position and the
// weighted circular mean orientation over the current particle set.
func (f *StreamParticleFilter) weightedMeanPose() geometry.Pose {
	var x, y, z, floor, sinSum, cosSum, velocity float64
	for i, s := range f.particles {
		w := f.weights[i]
		x += w * s.X
		y += w * s.Y
		z += w * s.Z
		floor += w * s.Floor
		velocity += w * s.Velocity
		sinSum += w * math.Sin(s.Orientation)
		cosSum += w * math.Cos(s.Orientation)
	}
	return geometry.Pose{
		Location:    geometry.Location{X: x, Y: y, Z: z, Floor: floor},
		Orientation: geometry.WrapOrientation(math.Atan2(sinSum, cosSum)),
		Velocity:    velocity,
	}
}

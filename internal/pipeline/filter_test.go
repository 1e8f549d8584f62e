package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/banshee-data/bleloc/internal/config"
	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/observation"
	"github.com/banshee-data/bleloc/internal/randutil"
	"github.com/banshee-data/bleloc/internal/seed"
	"github.com/stretchr/testify/require"
)

// fakeBuilding is an open, single-floor building: everything is valid and
// movable, and no segment ever crosses a wall. Sufficient for exercising
// the orchestrator without re-testing geometry.Building itself.
type fakeBuilding struct{}

func (fakeBuilding) IsValid(loc geometry.Location) bool    { return true }
func (fakeBuilding) IsMovable(loc geometry.Location) bool  { return true }
func (fakeBuilding) IsStair(loc geometry.Location) bool    { return false }
func (fakeBuilding) IsElevator(loc geometry.Location) bool { return false }
func (fakeBuilding) CheckCrossingWall(start, end geometry.Location) bool {
	return false
}
func (fakeBuilding) EstimateWallAngle(start, end geometry.Location) (float64, bool) {
	return 0, false
}

func twoBeacons() []geometry.BLEBeacon {
	return []geometry.BLEBeacon{
		{ID: 1, Location: geometry.Location{X: 0, Y: 0, Floor: 0}},
		{ID: 2, Location: geometry.Location{X: 10, Y: 0, Floor: 0}},
	}
}

func trainedObservationModel(t *testing.T) *observation.Model {
	t.Helper()
	beacons := twoBeacons()
	m, err := observation.New(observation.DefaultConfig(), beacons)
	require.NoError(t, err)
	samples := make([]geometry.Sample, 20)
	for i := range samples {
		loc := geometry.Location{X: float64(i % 10), Y: float64(i % 5), Floor: 0}
		samples[i] = geometry.Sample{
			Location: loc,
			Beacons: []geometry.Beacon{
				{ID: 1, RSSI: -40 - 2*loc.Distance2D(beacons[0].Location)},
				{ID: 2, RSSI: -40 - 2*loc.Distance2D(beacons[1].Location)},
			},
		}
	}
	_, err = m.Train(context.Background(), samples)
	require.NoError(t, err)
	return m
}

func newTestFilter(t *testing.T, nStates int) *StreamParticleFilter {
	t.Helper()
	samples := make([]geometry.Sample, 10)
	for i := range samples {
		samples[i] = geometry.Sample{Location: geometry.Location{X: float64(i), Y: 0, Floor: 0}}
	}
	priors := seed.Priors{MeanVelocity: 1, StdVelocity: 0.2, MinVelocity: 0.1, MaxVelocity: 2, StdRSSIBias: 1}
	init, err := seed.New(samples, fakeBuilding{}, priors, randutil.New(7))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.NStates = nStates
	cfg.MixtureProbability = 0
	f, err := New(Params{
		Config:      cfg,
		Building:    fakeBuilding{},
		Observation: trainedObservationModel(t),
		Initializer: init,
	})
	require.NoError(t, err)
	return f
}

func TestNew_BuildsParticleSetOfConfiguredSize(t *testing.T) {
	f := newTestFilter(t, 50)
	require.Len(t, f.Particles(), 50)
}

func TestUpdateAcceleration_FirstCallOnlyAnchorsTime(t *testing.T) {
	f := newTestFilter(t, 20)
	before := f.Particles()
	require.NoError(t, f.UpdateAcceleration(time.Unix(0, 0), true))
	after := f.Particles()
	for i := range before {
		require.Equal(t, before[i], after[i], "expected no predict step on the first accelerometer event")
	}
}

func TestUpdateAcceleration_RejectsNonPositiveDeltaT(t *testing.T) {
	f := newTestFilter(t, 10)
	t0 := time.Unix(100, 0)
	require.NoError(t, f.UpdateAcceleration(t0, true))
	require.ErrorIs(t, f.UpdateAcceleration(t0, true), ErrOutOfOrder, "expected ErrOutOfOrder for a repeated timestamp")
	require.ErrorIs(t, f.UpdateAcceleration(t0.Add(-time.Second), true), ErrOutOfOrder, "expected ErrOutOfOrder for a timestamp moving backward")
}

func TestUpdateAcceleration_AdvancesParticlesOnStep(t *testing.T) {
	f := newTestFilter(t, 20)
	t0 := time.Unix(100, 0)
	require.NoError(t, f.UpdateAcceleration(t0, true))
	require.NoError(t, f.UpdateInertial(t0, 0))
	before := f.Particles()
	require.NoError(t, f.UpdateAcceleration(t0.Add(time.Second), true))
	after := f.Particles()
	moved := false
	for i := range before {
		if before[i].X != after[i].X || before[i].Y != after[i].Y {
			moved = true
			break
		}
	}
	require.True(t, moved, "expected at least one particle to move after a step-detected predict")
}

func TestUpdateBeacons_WeightsSumToOne(t *testing.T) {
	f := newTestFilter(t, 64)
	scan := []geometry.Beacon{{ID: 1, RSSI: -45}, {ID: 2, RSSI: -55}}
	_, err := f.UpdateBeacons(context.Background(), time.Unix(0, 0), scan)
	require.NoError(t, err)
	var sum float64
	for _, w := range f.weights {
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestUpdateBeacons_ParticleCountStaysConstantAcrossResample(t *testing.T) {
	f := newTestFilter(t, 64)
	// A scan that's wildly inconsistent with most particles drives N_eff
	// down sharply and should trigger a resample.
	scan := []geometry.Beacon{{ID: 1, RSSI: -40}, {ID: 2, RSSI: -95}}
	_, err := f.UpdateBeacons(context.Background(), time.Unix(0, 0), scan)
	require.NoError(t, err)
	require.Len(t, f.particles, 64)
}

func TestUpdateBeacons_CancelledContextLeavesStateUnchanged(t *testing.T) {
	f := newTestFilter(t, 16)
	beforeWeights := append([]float64(nil), f.weights...)
	beforeParticles := append([]geometry.State(nil), f.particles...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.UpdateBeacons(ctx, time.Unix(0, 0), []geometry.Beacon{{ID: 1, RSSI: -50}})
	require.ErrorIs(t, err, ErrCancelled)
	for i := range beforeWeights {
		require.Equal(t, beforeWeights[i], f.weights[i], "expected weights unchanged on cancellation")
		require.Equal(t, beforeParticles[i], f.particles[i], "expected particles unchanged on cancellation")
	}
}

func TestUpdateBeacons_EmitsFiniteEstimate(t *testing.T) {
	f := newTestFilter(t, 32)
	est, err := f.UpdateBeacons(context.Background(), time.Unix(0, 0), []geometry.Beacon{{ID: 1, RSSI: -50}, {ID: 2, RSSI: -60}})
	require.NoError(t, err)
	require.False(t, math.IsNaN(est.Pose.X) || math.IsNaN(est.Pose.Y) || math.IsNaN(est.Pose.Orientation), "expected finite pose estimate, got %+v", est.Pose)
	require.False(t, math.IsNaN(est.MeanLogLikelihood) || math.IsInf(est.MeanLogLikelihood, 0), "expected finite mean log-likelihood, got %v", est.MeanLogLikelihood)
	require.Equal(t, f.RunID(), est.RunID)
}

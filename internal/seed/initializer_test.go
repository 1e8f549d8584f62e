package seed

import (
	"math"
	"testing"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/randutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// openFloor treats every pixel as movable, across a wide bounds so the
// tests' synthetic locations always land inside it.
type openFloor struct{}

func (openFloor) IsMovable(loc geometry.Location) bool {
	return loc.X >= 0 && loc.X < 1000 && loc.Y >= 0 && loc.Y < 1000
}

func tenMovableSamples() []geometry.Sample {
	samples := make([]geometry.Sample, 10)
	for i := range samples {
		samples[i] = geometry.Sample{ID: uuid.New(), Location: geometry.Location{X: float64(i), Y: float64(i), Floor: 0}}
	}
	return samples
}

func defaultPriors() Priors {
	return Priors{
		MeanVelocity: 1.0,
		StdVelocity:  0.3,
		MinVelocity:  0.1,
		MaxVelocity:  2.0,
		MeanRSSIBias: 0,
		StdRSSIBias:  2,
		MinRSSIBias:  -10,
		MaxRSSIBias:  10,
	}
}

func TestNew_FailsOnNoMovableSamples(t *testing.T) {
	samples := []geometry.Sample{{Location: geometry.Location{X: -1, Y: -1}}}
	_, err := New(samples, openFloor{}, defaultPriors(), randutil.New(1))
	require.Error(t, err)
}

func TestStatusInitializer_SampleCountAndMovability(t *testing.T) {
	si, err := New(tenMovableSamples(), openFloor{}, defaultPriors(), randutil.New(1))
	require.NoError(t, err)
	states := si.Sample(1000)
	require.Len(t, states, 1000)
	for i, s := range states {
		require.True(t, (openFloor{}).IsMovable(s.Location), "state %d not movable: %+v", i, s.Location)
		require.Positive(t, s.Weight, "state %d has non-positive weight", i)
		require.NotEqual(t, uuid.Nil, s.OriginSampleID, "state %d has no originating sample id", i)
	}
}

func TestStatusInitializer_WeightsSumToOne(t *testing.T) {
	si, err := New(tenMovableSamples(), openFloor{}, defaultPriors(), randutil.New(2))
	require.NoError(t, err)
	states := si.Sample(200)
	var sum float64
	for _, s := range states {
		sum += s.Weight
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestStatusInitializer_VelocityWithinBounds(t *testing.T) {
	priors := defaultPriors()
	si, err := New(tenMovableSamples(), openFloor{}, priors, randutil.New(3))
	require.NoError(t, err)
	for _, s := range si.Sample(500) {
		require.GreaterOrEqual(t, s.NormalVelocity, priors.MinVelocity)
		require.LessOrEqual(t, s.NormalVelocity, priors.MaxVelocity)
	}
}

func TestResetStates_OrientationBiasFromMeasuredOrientation(t *testing.T) {
	si, err := New(tenMovableSamples(), openFloor{}, defaultPriors(), randutil.New(4))
	require.NoError(t, err)
	mean := geometry.Pose{Location: geometry.Location{X: 5, Y: 5, Floor: 0}, Orientation: 0}
	states := si.ResetStates(50, mean, geometry.Location{X: 0.5, Y: 0.5}, math.Pi/2)
	for _, s := range states {
		want := math.Pi/2 - s.Orientation
		require.InDelta(t, want, s.OrientationBias, 1e-9)
		require.True(t, (openFloor{}).IsMovable(s.Location), "reset state landed off the movable map: %+v", s.Location)
	}
}

package gp

import (
	"math"
	"testing"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/stretchr/testify/require"
)

func gridPoints() []geometry.Location {
	var pts []geometry.Location
	for x := 0.0; x < 20; x += 4 {
		for y := 0.0; y < 20; y += 4 {
			pts = append(pts, geometry.Location{X: x, Y: y, Floor: 0})
		}
	}
	return pts
}

// smoothField is a function the RBF kernel should be able to interpolate
// reasonably well from a grid of noiseless samples.
func smoothField(l geometry.Location) float64 {
	return 3*math.Sin(l.X/5) + 2*math.Cos(l.Y/7)
}

func TestFit_PredictsTrainingPointsCloselyWithSmallNugget(t *testing.T) {
	X := gridPoints()
	y := make([]float64, len(X))
	for i, p := range X {
		y[i] = smoothField(p)
	}

	m, err := Fit(X, y, Kernel{Amplitude: 16, Lengthscale: 6, FloorLengthscale: 1}, 1e-4)
	require.NoError(t, err)

	for i, p := range X {
		got := m.Predict(p)
		require.InDelta(t, y[i], got, 0.5, "Predict(%v)", p)
	}
}

func TestFit_RidgeFallbackOnDuplicatePoints(t *testing.T) {
	X := []geometry.Location{
		{X: 1, Y: 1, Floor: 0},
		{X: 1, Y: 1, Floor: 0}, // exact duplicate -> singular Gram at nugget 0
		{X: 5, Y: 5, Floor: 0},
	}
	y := []float64{1, 1, -2}

	m, err := Fit(X, y, Kernel{Amplitude: 4, Lengthscale: 3, FloorLengthscale: 1}, 0)
	require.NoError(t, err, "Fit should recover via ridge inflation")
	require.Greater(t, m.Nugget, 0.0, "expected ridge inflation to have increased nugget above 0")
}

func TestFit_RejectsMismatchedLengths(t *testing.T) {
	X := []geometry.Location{{X: 0, Y: 0}}
	y := []float64{1, 2}
	_, err := Fit(X, y, Kernel{Amplitude: 1, Lengthscale: 1, FloorLengthscale: 1}, 1)
	require.Error(t, err, "expected error on mismatched X/y lengths")
}

func TestFitCV_SelectsAWorkingModel(t *testing.T) {
	X := gridPoints()
	y := make([]float64, len(X))
	for i, p := range X {
		y[i] = smoothField(p)
	}
	m, err := FitCV(X, y)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestKernel_FloorMismatchReducesCorrelation(t *testing.T) {
	k := Kernel{Amplitude: 10, Lengthscale: 5, FloorLengthscale: 1}
	same := k.Eval(geometry.Location{X: 0, Y: 0, Floor: 0}, geometry.Location{X: 0, Y: 0, Floor: 0})
	diff := k.Eval(geometry.Location{X: 0, Y: 0, Floor: 0}, geometry.Location{X: 0, Y: 0, Floor: 2})
	require.Less(t, diff, same, "expected a floor mismatch to reduce kernel correlation")
}

package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapOrientation(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{2 * math.Pi, 0},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{5 * math.Pi, math.Pi},
	}
	for _, tc := range cases {
		got := WrapOrientation(tc.in)
		require.InDelta(t, tc.want, got, 1e-9, "WrapOrientation(%v)", tc.in)
	}
}

func TestLocation_Valid(t *testing.T) {
	require.True(t, (Location{Floor: 2}).Valid(), "expected finite floor to be valid")
	require.False(t, (Location{Floor: math.NaN()}).Valid(), "expected NaN floor to be invalid")
	require.False(t, (Location{Floor: math.Inf(1)}).Valid(), "expected +Inf floor to be invalid")
}

func TestBeaconID_Distinct(t *testing.T) {
	a := BeaconID(1, 2)
	b := BeaconID(1, 3)
	c := BeaconID(2, 2)
	require.NotEqual(t, a, b)
	require.NotEqual(t, a, c)
	require.NotEqual(t, b, c)
}

func TestSample_BeaconByID(t *testing.T) {
	s := Sample{Beacons: []Beacon{{ID: 7, RSSI: -55}, {ID: 9, RSSI: -70}}}
	got, ok := s.BeaconByID(9)
	require.True(t, ok)
	require.Equal(t, -70.0, got.RSSI)
	_, ok = s.BeaconByID(42)
	require.False(t, ok, "expected BeaconByID(42) to miss")
}

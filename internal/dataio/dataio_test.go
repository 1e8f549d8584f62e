package dataio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/gp"
	"github.com/banshee-data/bleloc/internal/observation"
	"github.com/banshee-data/bleloc/internal/pathloss"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadTrainingSamplesCSV_ParsesBeaconColumns(t *testing.T) {
	csv := "0,1,2,0,0,2,100,1,-60,100,2,-65\n"
	samples, err := LoadTrainingSamplesCSV(strings.NewReader(csv), false)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	require.Equal(t, 1.0, s.Location.X)
	require.Equal(t, 2.0, s.Location.Y)
	require.Len(t, s.Beacons, 2)
	require.Equal(t, geometry.BeaconID(100, 1), s.Beacons[0].ID)
	require.Equal(t, -60.0, s.Beacons[0].RSSI)
}

func TestLoadTrainingSamplesCSV_ShortUnitScalesXYZ(t *testing.T) {
	csv := "0,1,1,1,0,0\n"
	samples, err := LoadTrainingSamplesCSV(strings.NewReader(csv), true)
	require.NoError(t, err)
	require.Equal(t, footToMeter, samples[0].Location.X)
}

func TestLoadTrainingSamplesCSV_RejectsShortRow(t *testing.T) {
	_, err := LoadTrainingSamplesCSV(strings.NewReader("0,1,2\n"), false)
	require.Error(t, err)
}

func TestLoadTrainingSamplesJSON_RoundTripsAgainstCSV(t *testing.T) {
	jsonSrc := `[{"timestamp":0,"location":{"x":1,"y":2,"z":0,"floor":0},"beacons":[{"major":100,"minor":1,"rssi":-60}]}]`
	samples, err := LoadTrainingSamplesJSON(strings.NewReader(jsonSrc))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 1.0, samples[0].Location.X)

	csvSamples, err := LoadTrainingSamplesCSV(strings.NewReader("0,1,2,0,0,1,100,1,-60\n"), false)
	require.NoError(t, err)
	require.Len(t, csvSamples, 1)
	require.Equal(t, csvSamples[0].Location, samples[0].Location)
	require.Equal(t, csvSamples[0].Beacons, samples[0].Beacons)
	require.True(t, csvSamples[0].Timestamp.Equal(samples[0].Timestamp))
}

func TestLoadBeaconsCSV_ParsesRegistryRows(t *testing.T) {
	csv := "uuid-a,100,1,1.5,2.5,0,0\n"
	beacons, err := LoadBeaconsCSV(strings.NewReader(csv), 1)
	require.NoError(t, err)
	require.Len(t, beacons, 1)
	require.Equal(t, geometry.BeaconID(100, 1), beacons[0].ID)
	require.Equal(t, 1.5, beacons[0].Location.X)
	require.Equal(t, 2.5, beacons[0].Location.Y)
}

func TestLoadBeaconsCSV_AppliesUnitScale(t *testing.T) {
	beacons, err := LoadBeaconsCSV(strings.NewReader("u,1,1,1,1,0,0\n"), 0.3048)
	require.NoError(t, err)
	require.Equal(t, 0.3048, beacons[0].Location.X)
}

func TestParseMapSpec_SingleImagePath(t *testing.T) {
	specs, err := ParseMapSpec("floor0.png")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, "floor0.png", specs[0].Path)
	require.Equal(t, 1.0, specs[0].Coord.PPMX)
}

func TestParseMapSpec_MultiFloorList(t *testing.T) {
	spec := "0,10,10,0,0,floor0.png,1,10,10,0,0,floor1.png"
	specs, err := ParseMapSpec(spec)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	require.Equal(t, 1, specs[1].Floor)
	require.Equal(t, "floor1.png", specs[1].Path)
}

func TestParseMapSpec_RejectsWrongFieldCount(t *testing.T) {
	_, err := ParseMapSpec("0,10,10,0,0")
	require.Error(t, err)
}

func newTrainedModelFixture(t *testing.T) *observation.Model {
	t.Helper()
	beacons := []geometry.BLEBeacon{
		{ID: geometry.BeaconID(1, 1), Location: geometry.Location{X: 0, Y: 0}},
		{ID: geometry.BeaconID(1, 2), Location: geometry.Location{X: 10, Y: 0}},
	}
	m, err := observation.New(observation.DefaultConfig(), beacons)
	require.NoError(t, err)
	gpModel := gp.FromTrained(
		[]geometry.Location{{X: 1, Y: 1}, {X: 2, Y: 2}},
		gp.Kernel{Amplitude: 4, Lengthscale: 5, FloorLengthscale: 1},
		0.25,
		[]float64{0.1, -0.2},
	)
	m.LoadTrained(
		map[int64]pathloss.Params{
			geometry.BeaconID(1, 1): {GainDistance: -20, Constant: -40},
			geometry.BeaconID(1, 2): {GainDistance: -22, Constant: -38},
		},
		map[int64]*gp.Model{geometry.BeaconID(1, 1): gpModel},
		map[int64]float64{geometry.BeaconID(1, 1): 3.5},
		7.2,
	)
	return m
}

func TestTrainedModel_RoundTripsThroughJSON(t *testing.T) {
	original := newTrainedModelFixture(t)

	var buf bytes.Buffer
	require.NoError(t, SaveTrainedModel(&buf, original))

	beacons := []geometry.BLEBeacon{
		{ID: geometry.BeaconID(1, 1), Location: geometry.Location{X: 0, Y: 0}},
		{ID: geometry.BeaconID(1, 2), Location: geometry.Location{X: 10, Y: 0}},
	}
	restored, err := observation.New(observation.DefaultConfig(), beacons)
	require.NoError(t, err)
	require.NoError(t, LoadTrainedModel(&buf, restored, nil))

	if diff := cmp.Diff(original.ITUParams(), restored.ITUParams()); diff != "" {
		t.Fatalf("ITU params diverged after round trip (-want +got):\n%s", diff)
	}
	require.Equal(t, original.UnknownBeaconStdev(), restored.UnknownBeaconStdev())

	wantGP := original.GPModels()[geometry.BeaconID(1, 1)]
	gotGP := restored.GPModels()[geometry.BeaconID(1, 1)]
	require.NotNil(t, gotGP, "expected GP model for beacon (1,1) to survive round trip")
	probe := geometry.Location{X: 1.5, Y: 1.5}
	require.InDelta(t, wantGP.Predict(probe), gotGP.Predict(probe), 1e-9)
}

func TestLoadTrainedModel_RejectsUnknownVersion(t *testing.T) {
	m, err := observation.New(observation.DefaultConfig(), []geometry.BLEBeacon{
		{ID: geometry.BeaconID(1, 1), Location: geometry.Location{}},
	})
	require.NoError(t, err)
	err = LoadTrainedModel(strings.NewReader(`{"version":99}`), m, nil)
	require.Error(t, err)
}

func TestLoadTrainedModel_LegacyVersionBroadcastsSharedITU(t *testing.T) {
	legacy := `{"version":0,"itu":[{"beacon_id":0,"gain_distance":-20,"constant":-40,"cross_floor_gain":0,"cross_floor_const":0}],"unknown_beacon_stdev":9}`
	m, err := observation.New(observation.DefaultConfig(), []geometry.BLEBeacon{
		{ID: geometry.BeaconID(1, 1), Location: geometry.Location{}},
		{ID: geometry.BeaconID(1, 2), Location: geometry.Location{}},
	})
	require.NoError(t, err)
	ids := []int64{geometry.BeaconID(1, 1), geometry.BeaconID(1, 2)}
	require.NoError(t, LoadTrainedModel(strings.NewReader(legacy), m, ids))

	itu := m.ITUParams()
	require.Len(t, itu, 2)
	for _, id := range ids {
		require.Equal(t, -20.0, itu[id].GainDistance)
	}
}

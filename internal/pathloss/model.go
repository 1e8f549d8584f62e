package pathloss

import (
	"math"

	"github.com/banshee-data/bleloc/internal/geometry"
)

// Params is the 4-vector theta fit per beacon: gain on -10*log10(distance),
// a constant offset, a cross-floor distance coefficient, and a cross-floor
// constant.
type Params struct {
	GainDistance    float64
	Constant        float64
	CrossFloorGain  float64
	CrossFloorConst float64
}

// Vector returns theta as a plain 4-slice, in the same order Features
// produces its feature vector, so that Predict(phi, theta) = dot(phi, theta).
func (p Params) Vector() [4]float64 {
	return [4]float64{p.GainDistance, p.Constant, p.CrossFloorGain, p.CrossFloorConst}
}

// Model is the ITU path-loss predictor: minRssi floors predictions, and
// distanceOffset floors the distance term to avoid -Inf at distance 0.
type Model struct {
	MinRSSI        float64
	DistanceOffset float64
}

// DefaultModel matches the conventional ble-locoppp defaults: a -100 dBm
// floor and a 1-meter minimum distance.
func DefaultModel() Model {
	return Model{MinRSSI: -100, DistanceOffset: 1}
}

// Features computes phi(rx, tx) in R^4 per the path-loss feature
// definition: phi0 is the log-distance term (distance floored at
// DistanceOffset), phi1 is the constant-offset indicator, and phi2/phi3
// are zero unless rx and tx are on different floors (|floorDiff| >= 1),
// in which case they carry the (negated) floor difference and a
// cross-floor constant indicator.
func (m Model) Features(rx, tx geometry.Location) [4]float64 {
	dist := rx.Distance3D(tx)
	if dist < m.DistanceOffset {
		dist = m.DistanceOffset
	}
	phi0 := -10 * math.Log10(dist)

	floorDiff := rx.FloorDiff(tx)
	var phi2, phi3 float64
	if math.Abs(floorDiff) >= 1 {
		phi2 = -floorDiff
		phi3 = -1
	}
	return [4]float64{phi0, 1, phi2, phi3}
}

// Predict returns max(minRssi, phi . theta).
func (m Model) Predict(phi [4]float64, theta Params) float64 {
	v := theta.Vector()
	var dot float64
	for i := range phi {
		dot += phi[i] * v[i]
	}
	return math.Max(m.MinRSSI, dot)
}

// PredictAt is a convenience wrapper computing Features then Predict.
func (m Model) PredictAt(rx, tx geometry.Location, theta Params) float64 {
	return m.Predict(m.Features(rx, tx), theta)
}

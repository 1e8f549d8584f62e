package geometry

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Location is a point in the building: world (x, y, z) plus a floor index.
// Floor is a real number; its integer truncation indexes the Building's
// per-floor raster, which lets a state sit "between" floors briefly while
// riding a stair or elevator cue.
type Location struct {
	X     float64
	Y     float64
	Z     float64
	Floor float64
}

// FloorIndex truncates Floor to the integer raster index.
func (l Location) FloorIndex() int {
	return int(math.Floor(l.Floor))
}

// Valid reports whether the location's floor component is finite. It does
// not check map membership — use Building.IsValid for that.
func (l Location) Valid() bool {
	return !math.IsNaN(l.Floor) && !math.IsInf(l.Floor, 0)
}

// Distance2D returns the planar Euclidean distance between two locations,
// ignoring Z and floor.
func (l Location) Distance2D(o Location) float64 {
	dx := l.X - o.X
	dy := l.Y - o.Y
	return math.Hypot(dx, dy)
}

// Distance3D returns the Euclidean distance including Z, still ignoring floor.
func (l Location) Distance3D(o Location) float64 {
	dx := l.X - o.X
	dy := l.Y - o.Y
	dz := l.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// FloorDiff returns the signed difference in floor index between l and o.
func (l Location) FloorDiff(o Location) float64 {
	return l.Floor - o.Floor
}

// Pose is a Location with heading and speed.
type Pose struct {
	Location
	Orientation    float64 // radians, wrapped into [0, 2*pi)
	Velocity       float64 // instantaneous speed, m/s
	NormalVelocity float64 // the walker's steady-state speed, m/s
}

// WrapOrientation normalizes theta into [0, 2*pi).
func WrapOrientation(theta float64) float64 {
	const twoPi = 2 * math.Pi
	theta = math.Mod(theta, twoPi)
	if theta < 0 {
		theta += twoPi
	}
	return theta
}

// State is a Pose augmented with the per-particle bias and importance
// weight the particle filter carries.
type State struct {
	Pose
	OrientationBias float64 // radians; each motion step wraps it into [0, 2*pi)
	RSSIBias        float64 // dBm
	Weight          float64

	// OriginSampleID identifies the training sample this particle was
	// originally seeded from, for provenance when diagnosing a recovered
	// or resampled particle's ancestry. Zero for particles with no single
	// originating sample (e.g. a Gaussian-jittered reseed around a mean
	// pose).
	OriginSampleID uuid.UUID
}

// Beacon is a single RSSI observation keyed by a stable beacon id.
type Beacon struct {
	ID   int64
	RSSI float64
}

// BeaconID derives a stable beacon id from a (major, minor) pair.
func BeaconID(major, minor uint16) int64 {
	return int64(major)<<16 | int64(minor)
}

// IsObserved reports whether rssi represents an actual reading rather than
// "not observed / out of range" (conventionally anything at or below
// minRSSI, typically -100 dBm).
func (b Beacon) IsObserved(minRSSI float64) bool {
	return b.RSSI > minRSSI
}

// BLEBeacon is a registered static transmitter.
type BLEBeacon struct {
	ID int64
	Location
}

// Sample is a single labeled training observation: ground-truth location,
// the beacons seen there, and when it was taken.
type Sample struct {
	ID uuid.UUID
	Location
	Beacons   []Beacon
	Timestamp time.Time
}

// BeaconByID returns the beacon reading for id, if present in the sample.
func (s Sample) BeaconByID(id int64) (Beacon, bool) {
	for _, b := range s.Beacons {
		if b.ID == id {
			return b, true
		}
	}
	return Beacon{}, false
}

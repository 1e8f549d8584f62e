package geometry

import "math"

// CoordinateSystem maps between world meters and raster pixels for one
// floor's map image. Pixels-per-meter may be negative, which flips that
// axis (most floor plans have y growing downward in pixel space while the
// world frame has y growing north).
type CoordinateSystem struct {
	PPMX, PPMY, PPMZ          float64
	OriginX, OriginY, OriginZ float64
}

// PixelOf converts a world-frame (x, y) into floating point pixel
// coordinates on this floor's raster.
func (c CoordinateSystem) PixelOf(x, y float64) (px, py float64) {
	px = c.OriginX + x*c.PPMX
	py = c.OriginY + y*c.PPMY
	return px, py
}

// WorldOf is the inverse of PixelOf.
func (c CoordinateSystem) WorldOf(px, py float64) (x, y float64) {
	x = (px - c.OriginX) / c.PPMX
	y = (py - c.OriginY) / c.PPMY
	return x, y
}

// PixelZ converts a world-frame z into floor-local pixel/tick units, used
// only for altimeter-style vertical cues.
func (c CoordinateSystem) PixelZ(z float64) float64 {
	return c.OriginZ + z*c.PPMZ
}

// PixelDistance converts a world-frame planar distance into an
// approximate pixel distance, using the geometric mean of the (possibly
// anisotropic, possibly negative) per-axis scales.
func (c CoordinateSystem) PixelDistance(meters float64) float64 {
	scale := math.Sqrt(math.Abs(c.PPMX) * math.Abs(c.PPMY))
	return meters * scale
}

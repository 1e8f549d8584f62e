package dataio

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/bleloc/internal/geometry"
)

// FloorSpec is one floor's raster source and coordinate system, as parsed
// from a map spec string.
type FloorSpec struct {
	Floor int
	Coord geometry.CoordinateSystem
	Path  string
}

// ParseMapSpec parses a map spec: either a single image path (defaulting
// to a single floor at index 0 with 1 pixel-per-meter and a zero origin),
// or a comma-separated, repeated list of
//
//	floor,ppmx,ppmy,originx,originy,path
//
// groups, one per floor.
func ParseMapSpec(spec string) ([]FloorSpec, error) {
	fields := strings.Split(spec, ",")
	if len(fields) == 1 {
		return []FloorSpec{{
			Floor: 0,
			Coord: geometry.CoordinateSystem{PPMX: 1, PPMY: 1, PPMZ: 1},
			Path:  strings.TrimSpace(fields[0]),
		}}, nil
	}
	if len(fields)%6 != 0 {
		return nil, fmt.Errorf("dataio: map spec has %d comma-separated fields, want a multiple of 6 (floor,ppmx,ppmy,originx,originy,path)", len(fields))
	}

	var specs []FloorSpec
	for i := 0; i < len(fields); i += 6 {
		group := fields[i : i+6]
		floor, err := strconv.Atoi(strings.TrimSpace(group[0]))
		if err != nil {
			return nil, fmt.Errorf("dataio: map spec group %d: parsing floor: %w", i/6, err)
		}
		ppmx, err := strconv.ParseFloat(strings.TrimSpace(group[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: map spec group %d: parsing ppmx: %w", i/6, err)
		}
		ppmy, err := strconv.ParseFloat(strings.TrimSpace(group[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: map spec group %d: parsing ppmy: %w", i/6, err)
		}
		originX, err := strconv.ParseFloat(strings.TrimSpace(group[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: map spec group %d: parsing originx: %w", i/6, err)
		}
		originY, err := strconv.ParseFloat(strings.TrimSpace(group[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: map spec group %d: parsing originy: %w", i/6, err)
		}
		specs = append(specs, FloorSpec{
			Floor: floor,
			Coord: geometry.CoordinateSystem{PPMX: ppmx, PPMY: ppmy, PPMZ: 1, OriginX: originX, OriginY: originY},
			Path:  strings.TrimSpace(group[5]),
		})
	}
	return specs, nil
}

// Marker colors a floor-plan raster paints over the otherwise binary
// wall/movable image to flag stair and elevator cells.
var (
	stairMarker    = rgb{255, 0, 0}
	elevatorMarker = rgb{0, 0, 255}
)

type rgb struct{ r, g, b uint8 }

// LoadFloorMap decodes spec.Path as a PNG raster and classifies each
// pixel: near-white is movable, the stair/elevator marker colors are
// tagged accordingly, and everything else is a wall. This is a minimal,
// dependency-free raster convention (no floor-plan format in the example
// pack offers richer semantics than plain pixel classification).
func LoadFloorMap(spec FloorSpec) (*geometry.FloorMap, error) {
	f, err := os.Open(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("dataio: opening floor map %q: %w", spec.Path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("dataio: decoding floor map %q: %w", spec.Path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	fm := geometry.NewFloorMap(spec.Coord, width, height)

	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			c := classifyPixel(img, bounds.Min.X+px, bounds.Min.Y+py)
			fm.Set(px, py, c)
		}
	}
	return fm, nil
}

func classifyPixel(img image.Image, x, y int) geometry.CellKind {
	r, g, b, _ := img.At(x, y).RGBA()
	// RGBA() returns 16-bit-scaled channels; downscale to 8-bit for
	// comparison against the marker palette.
	px := rgb{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}

	switch {
	case closeTo(px, stairMarker):
		return geometry.CellStair
	case closeTo(px, elevatorMarker):
		return geometry.CellElevator
	case px.r > 200 && px.g > 200 && px.b > 200:
		return geometry.CellMovable
	default:
		return geometry.CellWall
	}
}

func closeTo(a, b rgb) bool {
	const tol = 30
	return absDiff(a.r, b.r) < tol && absDiff(a.g, b.g) < tol && absDiff(a.b, b.b) < tol
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

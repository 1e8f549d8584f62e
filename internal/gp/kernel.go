package gp

import (
	"math"

	"github.com/banshee-data/bleloc/internal/geometry"
)

// Kernel is an RBF kernel over 3D position with an additional scaled
// floor-mismatch term: points on different floors are treated as farther
// apart even at the same (x, y, z), governed by a separate lengthscale.
type Kernel struct {
	Amplitude        float64 // sigma_f^2, the kernel's output variance
	Lengthscale      float64 // RBF lengthscale over (x, y, z), meters
	FloorLengthscale float64 // RBF lengthscale over floor difference
}

// Eval returns k(a, b).
func (k Kernel) Eval(a, b geometry.Location) float64 {
	d2 := squaredDistance3D(a, b)
	floorDiff := a.Floor - b.Floor
	posTerm := d2 / (2 * k.Lengthscale * k.Lengthscale)
	floorTerm := (floorDiff * floorDiff) / (2 * k.FloorLengthscale * k.FloorLengthscale)
	return k.Amplitude * math.Exp(-(posTerm + floorTerm))
}

func squaredDistance3D(a, b geometry.Location) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

// candidateKernels is the fixed small hyperparameter grid fitCV searches.
// The set is deliberately small: GP fits happen offline per beacon during
// training, not on the particle filter's hot path.
func candidateKernels() []Kernel {
	var out []Kernel
	for _, amp := range []float64{4, 16, 64} {
		for _, l := range []float64{2, 5, 10, 20} {
			for _, lf := range []float64{0.5, 1.5} {
				out = append(out, Kernel{Amplitude: amp, Lengthscale: l, FloorLengthscale: lf})
			}
		}
	}
	return out
}

// candidateNuggets is the grid of observation-noise nuggets tried
// alongside each kernel.
func candidateNuggets() []float64 {
	return []float64{0.25, 1, 4}
}

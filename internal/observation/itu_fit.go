package observation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// beaconDesign is one beacon's regression design matrix: Phi rows paired
// with the observed (or minRssi-filled, depending on how it was built) Y
// values.
type beaconDesign struct {
	beaconID int64
	phi      [][4]float64
	y        []float64
}

// fitITUModel runs the shared-prior IRLS fit described in the observation
// model's training contract: each beacon's theta is refit against a
// per-row activity mask derived from its *own current* fitted prediction
// (row active when that prediction exceeds minRssi), then the shared
// prior theta0 is pulled toward the across-beacon mean. Beacons whose
// per-sweep solve fails (a singular weighted design, or a non-finite
// result) fall back to the current shared prior rather than polluting the
// mean with a diverged estimate.
func fitITUModel(cfg Config, designs []beaconDesign) (map[int64][4]float64, [4]float64) {
	theta0 := cfg.PriorTheta
	thetas := make(map[int64][4]float64, len(designs))
	for _, d := range designs {
		thetas[d.beaconID] = theta0
	}
	if len(designs) == 0 {
		return thetas, theta0
	}

	for iter := 0; iter < cfg.MaxIter; iter++ {
		for _, d := range designs {
			current := thetas[d.beaconID]
			fitted, ok := solveWeightedRidge(d, current, theta0, cfg.Lambda, cfg.MinRSSI)
			if ok {
				thetas[d.beaconID] = fitted
			} else {
				thetas[d.beaconID] = theta0
			}
		}

		var mean [4]float64
		for _, d := range designs {
			t := thetas[d.beaconID]
			for k := 0; k < 4; k++ {
				mean[k] += t[k]
			}
		}
		for k := 0; k < 4; k++ {
			mean[k] /= float64(len(designs))
		}

		var newTheta0 [4]float64
		var delta float64
		for k := 0; k < 4; k++ {
			lam, rho := cfg.Lambda[k], cfg.Rho[k]
			if lam+rho == 0 {
				newTheta0[k] = theta0[k]
			} else {
				newTheta0[k] = lam * mean[k] / (lam + rho)
			}
			d := newTheta0[k] - theta0[k]
			delta += d * d
		}
		theta0 = newTheta0
		if math.Sqrt(delta) < cfg.Tol {
			break
		}
	}
	return thetas, theta0
}

// solveWeightedRidge solves (Phi^T W Phi + Lambda) theta = Phi^T W y + Lambda*theta0
// where W is diagonal with Wii = 1 when dot(phi_i, current) > minRssi, else 0.
// Returns ok=false if the resulting theta contains a non-finite value or
// the linear solve fails outright.
func solveWeightedRidge(d beaconDesign, current, theta0 [4]float64, lambda [4]float64, minRSSI float64) ([4]float64, bool) {
	ata := mat.NewDense(4, 4, nil)
	var aty [4]float64

	for i, phi := range d.phi {
		yhat := dot4(phi, current)
		if yhat <= minRSSI {
			continue
		}
		for r := 0; r < 4; r++ {
			aty[r] += phi[r] * d.y[i]
			for c := 0; c < 4; c++ {
				ata.Set(r, c, ata.At(r, c)+phi[r]*phi[c])
			}
		}
	}
	for k := 0; k < 4; k++ {
		ata.Set(k, k, ata.At(k, k)+lambda[k])
		aty[k] += lambda[k] * theta0[k]
	}

	b := mat.NewVecDense(4, aty[:])
	var x mat.VecDense
	if err := x.SolveVec(ata, b); err != nil {
		return [4]float64{}, false
	}

	var result [4]float64
	for k := 0; k < 4; k++ {
		v := x.AtVec(k)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return [4]float64{}, false
		}
		result[k] = v
	}
	return result, true
}

func dot4(a, b [4]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

package gp

import (
	"fmt"

	"github.com/banshee-data/bleloc/internal/geometry"
	"gonum.org/v1/gonum/mat"
)

// Model is a fitted GP over one beacon's residual column: the training
// points, the kernel/nugget it was fit with, and the cached solve
// alpha = (K + nugget*I)^-1 y that Predict reuses for every query.
type Model struct {
	X      []geometry.Location
	Kernel Kernel
	Nugget float64
	alpha  []float64
}

// maxRidgeInflations bounds how many times Fit doubles the nugget while
// hunting for a well-conditioned Gram matrix before giving up.
const maxRidgeInflations = 8

// Fit builds the Gram matrix for X under kernel, factorizes K+nugget*I via
// Cholesky, and solves for alpha against y. If the Gram matrix is
// singular (or numerically indistinguishable from singular) at the
// requested nugget, the nugget is doubled and the fit retried, up to
// maxRidgeInflations times.
func Fit(X []geometry.Location, y []float64, kernel Kernel, nugget float64) (*Model, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("gp: len(X)=%d != len(y)=%d", len(X), len(y))
	}
	if len(X) == 0 {
		return nil, fmt.Errorf("gp: cannot fit with zero training points")
	}

	n := len(X)
	nug := nugget
	var chol mat.Cholesky
	var gram *mat.SymDense
	ok := false
	for attempt := 0; attempt <= maxRidgeInflations; attempt++ {
		gram = mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := kernel.Eval(X[i], X[j])
				if i == j {
					v += nug
				}
				gram.SetSym(i, j, v)
			}
		}
		if chol.Factorize(gram) {
			ok = true
			break
		}
		if nug <= 0 {
			nug = 1e-6
		} else {
			nug *= 2
		}
	}
	if !ok {
		return nil, fmt.Errorf("gp: Gram matrix remained singular after %d ridge inflations", maxRidgeInflations)
	}

	yVec := mat.NewVecDense(n, y)
	alphaVec := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alphaVec, yVec); err != nil {
		return nil, fmt.Errorf("gp: solving for alpha: %w", err)
	}

	alpha := make([]float64, n)
	for i := range alpha {
		alpha[i] = alphaVec.AtVec(i)
	}

	return &Model{
		X:      append([]geometry.Location(nil), X...),
		Kernel: kernel,
		Nugget: nug,
		alpha:  alpha,
	}, nil
}

// Alpha returns the cached solve weights, for persistence. Rehydrate a
// Model from persisted parameters with FromTrained rather than re-running
// Fit, since alpha already encodes the Cholesky solve against the
// training targets.
func (m *Model) Alpha() []float64 {
	return append([]float64(nil), m.alpha...)
}

// FromTrained reconstructs a Model from previously persisted parameters
// without repeating the Gram-matrix solve.
func FromTrained(X []geometry.Location, kernel Kernel, nugget float64, alpha []float64) *Model {
	return &Model{
		X:      append([]geometry.Location(nil), X...),
		Kernel: kernel,
		Nugget: nugget,
		alpha:  append([]float64(nil), alpha...),
	}
}

// Predict returns the posterior mean residual at x: sum_i alpha_i * k(x, X_i).
// The posterior variance is intentionally not returned here — per-beacon
// noise is instead estimated empirically one layer up, in
// internal/observation.
func (m *Model) Predict(x geometry.Location) float64 {
	var sum float64
	for i, xi := range m.X {
		sum += m.alpha[i] * m.Kernel.Eval(x, xi)
	}
	return sum
}

// FitCV searches the fixed kernel/nugget grid via leave-one-out
// cross-validation and returns the model refit on the full data with the
// best-scoring hyperparameters. Leave-one-out is affordable here because
// per-beacon training sets are small (a few hundred points at most).
func FitCV(X []geometry.Location, y []float64) (*Model, error) {
	if len(X) != len(y) || len(X) == 0 {
		return nil, fmt.Errorf("gp: FitCV requires matching, non-empty X and y")
	}

	bestScore := -1.0
	var bestKernel Kernel
	var bestNugget float64
	found := false

	for _, k := range candidateKernels() {
		for _, nug := range candidateNuggets() {
			score, err := leaveOneOutMSE(X, y, k, nug)
			if err != nil {
				continue
			}
			if !found || score < bestScore {
				bestScore = score
				bestKernel = k
				bestNugget = nug
				found = true
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("gp: FitCV: no hyperparameter candidate produced a well-conditioned fit")
	}
	return Fit(X, y, bestKernel, bestNugget)
}

// leaveOneOutMSE holds out each point in turn, fits on the rest, and
// returns the mean squared prediction error on the held-out points.
func leaveOneOutMSE(X []geometry.Location, y []float64, kernel Kernel, nugget float64) (float64, error) {
	n := len(X)
	if n < 2 {
		m, err := Fit(X, y, kernel, nugget)
		if err != nil {
			return 0, err
		}
		_ = m
		return 0, nil
	}

	var sqErr float64
	for holdout := 0; holdout < n; holdout++ {
		trainX := make([]geometry.Location, 0, n-1)
		trainY := make([]float64, 0, n-1)
		for i := 0; i < n; i++ {
			if i == holdout {
				continue
			}
			trainX = append(trainX, X[i])
			trainY = append(trainY, y[i])
		}
		m, err := Fit(trainX, trainY, kernel, nugget)
		if err != nil {
			return 0, err
		}
		pred := m.Predict(X[holdout])
		diff := pred - y[holdout]
		sqErr += diff * diff
	}
	return sqErr / float64(n), nil
}

package recovery

import (
	"math"
	"sort"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/randutil"
)

// Config holds the Metropolis sampler's burn-in and proposal parameters.
type Config struct {
	BurnInSteps  int
	Radius2D     float64 // meters, the proposal jump radius in (x, y)
	WithOrdering bool    // sort the burned-in set by logLL descending
}

// DefaultConfig is a modest burn-in suitable for per-scan recovery calls.
func DefaultConfig() Config {
	return Config{BurnInSteps: 20, Radius2D: 2.0, WithOrdering: true}
}

// ScoreFunc scores a candidate state's consistency with the current scan,
// typically observation.Model.ComputeLogLikelihood's LogLikelihood field.
type ScoreFunc func(geometry.State) float64

// Movable restricts proposals to the walkable map; geometry.Building
// satisfies it.
type Movable interface {
	IsMovable(loc geometry.Location) bool
}

// scored pairs a state with its last-computed log-likelihood, so burn-in
// doesn't re-score a state every time it's compared.
type scored struct {
	state geometry.State
	logLL float64
}

// Sampler runs the Metropolis burn-in over a candidate set.
type Sampler struct {
	cfg Config
}

// New returns a Sampler for cfg.
func New(cfg Config) *Sampler {
	return &Sampler{cfg: cfg}
}

// Run burns in each candidate independently for cfg.BurnInSteps proposal
// steps: a jump of radius cfg.Radius2D in (x, y) with floor held fixed,
// accepted with probability min(1, exp(scoreFn(proposal) - scoreFn(current))).
// If cfg.WithOrdering is set, the returned set is sorted by log-likelihood
// descending so Sampling(n) can return the best n.
func (s *Sampler) Run(candidates []geometry.State, building Movable, score ScoreFunc, rng *randutil.Source) []geometry.State {
	burned := make([]scored, len(candidates))
	for i, c := range candidates {
		burned[i] = scored{state: c, logLL: score(c)}
	}

	for step := 0; step < s.cfg.BurnInSteps; step++ {
		for i := range burned {
			current := burned[i]
			proposal := propose(current.state, s.cfg.Radius2D, rng)
			if building != nil && !building.IsMovable(proposal.Location) {
				continue
			}
			proposedLogLL := score(proposal)
			if acceptMetropolis(current.logLL, proposedLogLL, rng) {
				burned[i] = scored{state: proposal, logLL: proposedLogLL}
			}
		}
	}

	if s.cfg.WithOrdering {
		sort.Slice(burned, func(i, j int) bool { return burned[i].logLL > burned[j].logLL })
	}

	out := make([]geometry.State, len(burned))
	for i, b := range burned {
		out[i] = b.state
	}
	return out
}

// Sampling returns the top-n states from a (typically WithOrdering=true)
// burned-in set produced by Run. If n exceeds len(states), the full set
// is returned.
func Sampling(states []geometry.State, n int) []geometry.State {
	if n >= len(states) {
		return states
	}
	return states[:n]
}

func propose(state geometry.State, radius float64, rng *randutil.Source) geometry.State {
	angle := rng.Uniform(0, 2*math.Pi)
	dist := rng.Uniform(0, radius)
	proposal := state
	proposal.X = state.X + dist*math.Cos(angle)
	proposal.Y = state.Y + dist*math.Sin(angle)
	return proposal
}

func acceptMetropolis(currentLogLL, proposedLogLL float64, rng *randutil.Source) bool {
	if proposedLogLL >= currentLogLL {
		return true
	}
	acceptProb := math.Exp(proposedLogLL - currentLogLL)
	return rng.Uniform01() < acceptProb
}

package recovery

import (
	"math"
	"testing"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/randutil"
	"github.com/stretchr/testify/require"
)

type openFloor struct{}

func (openFloor) IsMovable(loc geometry.Location) bool { return true }

// peakScore scores a candidate by negative squared distance from (10, 10),
// so the burn-in should drift candidates toward that point.
func peakScore(s geometry.State) float64 {
	dx := s.X - 10
	dy := s.Y - 10
	return -(dx*dx + dy*dy)
}

func TestSampler_DriftsTowardHigherLikelihood(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BurnInSteps = 200
	cfg.Radius2D = 1.0
	s := New(cfg)
	rng := randutil.New(1)

	candidates := []geometry.State{
		{Pose: geometry.Pose{Location: geometry.Location{X: 0, Y: 0}}},
	}
	before := peakScore(candidates[0])
	out := s.Run(candidates, openFloor{}, peakScore, rng)
	after := peakScore(out[0])
	require.Greater(t, after, before, "expected burn-in to improve score")
}

func TestSampler_OrderingSortsDescending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WithOrdering = true
	cfg.BurnInSteps = 5
	s := New(cfg)
	rng := randutil.New(2)

	candidates := []geometry.State{
		{Pose: geometry.Pose{Location: geometry.Location{X: 100, Y: 100}}},
		{Pose: geometry.Pose{Location: geometry.Location{X: 10, Y: 10}}},
		{Pose: geometry.Pose{Location: geometry.Location{X: 50, Y: 50}}},
	}
	out := s.Run(candidates, openFloor{}, peakScore, rng)
	for i := 1; i < len(out); i++ {
		require.LessOrEqual(t, peakScore(out[i]), peakScore(out[i-1])+1e-6, "expected descending order by score")
	}
}

func TestSampling_ReturnsTopN(t *testing.T) {
	states := []geometry.State{
		{Weight: 3}, {Weight: 2}, {Weight: 1},
	}
	top := Sampling(states, 2)
	require.Len(t, top, 2)
}

func TestSampling_NExceedsLength(t *testing.T) {
	states := []geometry.State{{Weight: 1}}
	top := Sampling(states, 5)
	require.Len(t, top, 1, "Sampling with n > len(states) should return the full set")
}

func TestProposal_RespectsRadius(t *testing.T) {
	rng := randutil.New(3)
	state := geometry.State{Pose: geometry.Pose{Location: geometry.Location{X: 0, Y: 0}}}
	for i := 0; i < 500; i++ {
		p := propose(state, 2.0, rng)
		dist := math.Hypot(p.X, p.Y)
		require.LessOrEqual(t, dist, 2.0+1e-9, "proposal distance exceeded radius 2.0")
	}
}

package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/pipeline"
	"github.com/stretchr/testify/require"
)

func TestPlotParticles_WritesPNGHeader(t *testing.T) {
	coord := geometry.CoordinateSystem{PPMX: 1, PPMY: 1}
	floor := geometry.NewFloorMap(coord, 4, 4)
	floor.Set(1, 1, geometry.CellMovable)

	particles := []geometry.State{
		{Pose: geometry.Pose{Location: geometry.Location{X: 1, Y: 1}}, Weight: 0.5},
		{Pose: geometry.Pose{Location: geometry.Location{X: 2, Y: 2}}, Weight: 0.5},
	}
	mean := geometry.Pose{Location: geometry.Location{X: 1.5, Y: 1.5}}

	var buf bytes.Buffer
	require.NoError(t, PlotParticles(&buf, floor, particles, mean))

	pngMagic := []byte{0x89, 'P', 'N', 'G'}
	require.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic), "output does not start with a PNG magic number, got %x", buf.Bytes()[:minInt(8, buf.Len())])
}

func TestPlotParticles_HandlesNoParticles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlotParticles(&buf, nil, nil, geometry.Pose{}))
	require.NotZero(t, buf.Len(), "expected non-empty PNG output even with no particles")
}

func TestRenderTrend_ProducesHTMLWithSeries(t *testing.T) {
	base := time.Unix(0, 0)
	estimates := []pipeline.Estimate{
		{Timestamp: base, NEff: 0.9, MeanLogLikelihood: -12.5},
		{Timestamp: base.Add(time.Second), NEff: 0.4, Resampled: true, MeanLogLikelihood: -9.1},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderTrend(&buf, estimates))

	html := buf.String()
	require.Contains(t, html, "n_eff")
	require.Contains(t, html, "mean_log_likelihood")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package report

import (
	"fmt"
	"image/color"
	"io"

	"github.com/banshee-data/bleloc/internal/geometry"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotParticles renders a PNG scatter of a particle cloud over floor's
// wall raster: wall cells as small gray points, particles as circles
// sized by weight, and the weighted-mean pose as a larger red circle.
func PlotParticles(w io.Writer, floor *geometry.FloorMap, particles []geometry.State, mean geometry.Pose) error {
	p := plot.New()
	p.Title.Text = "Particle cloud"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	if floor != nil {
		wallPts := make(plotter.XYs, 0, floor.Width*floor.Height/8)
		for py := 0; py < floor.Height; py++ {
			for px := 0; px < floor.Width; px++ {
				if !floor.IsWall(px, py) {
					continue
				}
				x, y := floor.Coordinate.WorldOf(float64(px), float64(py))
				wallPts = append(wallPts, plotter.XY{X: x, Y: y})
			}
		}
		if len(wallPts) > 0 {
			wallScatter, err := plotter.NewScatter(wallPts)
			if err != nil {
				return fmt.Errorf("report: building wall scatter: %w", err)
			}
			wallScatter.GlyphStyle = draw.GlyphStyle{Color: color.Gray{Y: 160}, Radius: vg.Points(0.5), Shape: draw.CircleGlyph{}}
			p.Add(wallScatter)
		}
	}

	if len(particles) > 0 {
		maxWeight := 0.0
		for _, s := range particles {
			if s.Weight > maxWeight {
				maxWeight = s.Weight
			}
		}
		if maxWeight <= 0 {
			maxWeight = 1
		}
		particlePts := make(plotter.XYs, len(particles))
		for i, s := range particles {
			particlePts[i] = plotter.XY{X: s.X, Y: s.Y}
		}
		particleScatter, err := plotter.NewScatter(particlePts)
		if err != nil {
			return fmt.Errorf("report: building particle scatter: %w", err)
		}
		baseStyle := draw.GlyphStyle{Color: color.RGBA{B: 200, A: 160}, Shape: draw.CircleGlyph{}}
		particleScatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			style := baseStyle
			norm := particles[i].Weight / maxWeight
			style.Radius = vg.Points(0.5 + 2.5*norm)
			return style
		}
		p.Add(particleScatter)
		p.Legend.Add("particles", particleScatter)
	}

	meanScatter, err := plotter.NewScatter(plotter.XYs{{X: mean.X, Y: mean.Y}})
	if err != nil {
		return fmt.Errorf("report: building mean-pose scatter: %w", err)
	}
	meanScatter.GlyphStyle = draw.GlyphStyle{Color: color.RGBA{R: 220, A: 255}, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
	p.Add(meanScatter)
	p.Legend.Add("mean pose", meanScatter)

	writerTo, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("report: preparing PNG writer: %w", err)
	}
	if _, err := writerTo.WriteTo(w); err != nil {
		return fmt.Errorf("report: writing PNG: %w", err)
	}
	return nil
}

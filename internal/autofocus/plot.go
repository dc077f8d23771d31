package autofocus

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePlot renders a sweep trace to a PNG at path: position on the
// x-axis, score (sharpness or flux) on the y-axis. Sampling happens
// during the sweep itself; this only renders what was already recorded
// and plays no part in the sweep's own focus decision, mirroring
// internal/lidar/monitor.GridPlotter's separation of sampling from
// rendering.
func SavePlot(trace []Sample, title, path string) error {
	if len(trace) == 0 {
		return fmt.Errorf("autofocus: no samples to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Focus position"
	p.Y.Label.Text = "Score"

	pts := make(plotter.XYs, len(trace))
	for i, s := range trace {
		pts[i] = plotter.XY{X: float64(s.Position), Y: s.Score}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("autofocus: build plot line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("autofocus: build plot scatter: %w", err)
	}
	p.Add(scatter)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("autofocus: save plot: %w", err)
	}
	return nil
}

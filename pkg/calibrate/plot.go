package calibrate

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePlot writes the points and the fitted line to path. The image format
// follows the file extension.
func SavePlot(path, title string, pts []Point, fit Fit) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Raw value"
	p.Y.Label.Text = "Temperature"

	xys := make(plotter.XYs, 0, len(pts))
	minX, maxX := 0.0, 0.0
	for i, pt := range pts {
		xys = append(xys, plotter.XY{X: pt.Raw, Y: pt.Actual})
		if i == 0 || pt.Raw < minX {
			minX = pt.Raw
		}
		if i == 0 || pt.Raw > maxX {
			maxX = pt.Raw
		}
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	p.Add(scatter)
	p.Legend.Add("observed", scatter)

	line, err := plotter.NewLine(plotter.XYs{
		{X: minX, Y: fit.Predict(minX)},
		{X: maxX, Y: fit.Predict(maxX)},
	})
	if err != nil {
		return fmt.Errorf("fit line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(fit.String(), line)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

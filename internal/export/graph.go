package export

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ayusman/skyline/internal/horizon"
)

// WriteGraph plots a line's height per column and saves it; the image
// format follows the path's extension.
func WriteGraph(path string, line horizon.Line) error {
	pts := make(plotter.XYs, 0, len(line))
	for x := 0; x < len(line); x++ {
		if !line.Known(x) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(x), Y: float64(line[x])})
	}
	return savePlot(path, "Horizon Height", "Column", "Height", pts)
}

// WriteVideoGraph plots the mean tracked height of each frame. Frames
// with no tracked columns are skipped.
func WriteVideoGraph(path string, lines []FrameLine) error {
	pts := make(plotter.XYs, 0, len(lines))
	for _, fl := range lines {
		heights := knownHeights(fl.Line)
		if len(heights) == 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(fl.Index), Y: stat.Mean(heights, nil)})
	}
	return savePlot(path, "Mean Horizon Height", "Frame", "Height", pts)
}

func knownHeights(line horizon.Line) []float64 {
	var heights []float64
	for x := 0; x < len(line); x++ {
		if line.Known(x) {
			heights = append(heights, float64(line[x]))
		}
	}
	return heights
}

func savePlot(path, title, xLabel, yLabel string, pts plotter.XYs) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	l, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build plot line: %w", err)
	}
	l.Width = vg.Points(1)
	p.Add(l)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save graph %s: %w", path, err)
	}
	return nil
}

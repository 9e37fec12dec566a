package analysis

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/zeu5/qfuzz/store"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	LengthPlotFile = "result_lengths.png"
	GrowthPlotFile = "state_growth.png"
)

var ErrNoResults = errors.New("no results to plot")

// PlotResultLengths writes a histogram of the accepted input lengths
func PlotResultLengths(records []store.Record, dir string) (string, error) {
	if len(records) == 0 {
		return "", ErrNoResults
	}
	vals := make(plotter.Values, len(records))
	for i, r := range records {
		vals[i] = float64(r.Length)
	}

	p := plot.New()
	p.Title.Text = "Accepted inputs"
	p.X.Label.Text = "Length"
	p.Y.Label.Text = "Count"
	hist, err := plotter.NewHist(vals, 20)
	if err != nil {
		return "", fmt.Errorf("histogram: %w", err)
	}
	p.Add(hist)

	out := filepath.Join(dir, LengthPlotFile)
	if err := p.Save(8*vg.Inch, 6*vg.Inch, out); err != nil {
		return "", fmt.Errorf("save plot: %w", err)
	}
	return out, nil
}

// PlotStateGrowth writes the size of the state space and the steps taken
// at each accepted input.
func PlotStateGrowth(records []store.Record, dir string) (string, error) {
	if len(records) == 0 {
		return "", ErrNoResults
	}
	p := plot.New()
	p.Title.Text = "Learning progress"
	p.X.Label.Text = "Accepted input"
	p.Y.Label.Text = "Count"

	series := []struct {
		name string
		val  func(store.Record) float64
	}{
		{"states", func(r store.Record) float64 { return float64(r.States) }},
		{"steps", func(r store.Record) float64 { return float64(r.Steps) }},
	}
	for i, s := range series {
		points := make(plotter.XYs, len(records))
		for j, r := range records {
			points[j] = plotter.XY{
				X: float64(j),
				Y: s.val(r),
			}
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return "", fmt.Errorf("%s line: %w", s.name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	out := filepath.Join(dir, GrowthPlotFile)
	if err := p.Save(8*vg.Inch, 8*vg.Inch, out); err != nil {
		return "", fmt.Errorf("save plot: %w", err)
	}
	return out, nil
}

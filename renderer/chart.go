// Package renderer draws run trajectories as PNG charts.
package renderer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pthm-cable/snow/simulation"
)

// ErrEmptyTrajectory is returned when there is nothing to plot.
var ErrEmptyTrajectory = errors.New("trajectory has no samples")

// ChartOptions controls the size and content of a trajectory chart.
type ChartOptions struct {
	Width    int
	Height   int
	Title    string
	ShowFree bool // also plot free-living totals as dashed lines
}

// DefaultChartOptions returns a 1024x480 chart with free pools shown.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 1024, Height: 480, Title: "Cells over time", ShowFree: true}
}

// RenderTrajectory writes a PNG line chart of attached (and optionally free)
// cell totals per genotype against simulated time.
func RenderTrajectory(w io.Writer, traj *simulation.Trajectory, opts ChartOptions) error {
	if traj == nil || traj.Len() == 0 {
		return ErrEmptyTrajectory
	}

	xMax, yMax := 0.0, 0.0
	var series []chart.Series
	for g, name := range traj.Genotypes {
		times, attached, free := traj.Series(g)
		c := chartColor(g)
		series = append(series, chart.ContinuousSeries{
			Name:    name + " attached",
			XValues: times,
			YValues: attached,
			Style: chart.Style{
				StrokeColor: c,
				StrokeWidth: 2,
			},
		})
		if opts.ShowFree {
			series = append(series, chart.ContinuousSeries{
				Name:    name + " free",
				XValues: times,
				YValues: free,
				Style: chart.Style{
					StrokeColor:     c.WithAlpha(160),
					StrokeWidth:     1.5,
					StrokeDashArray: []float64{5, 3},
				},
			})
		}
		xMax = max(xMax, times[len(times)-1])
		for i := range attached {
			yMax = max(yMax, attached[i])
			if opts.ShowFree {
				yMax = max(yMax, free[i])
			}
		}
	}

	// Flat or single-sample runs still need a non-empty range
	if xMax <= 0 {
		xMax = 1
	}
	if yMax <= 0 {
		yMax = 1
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "time",
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:  "cells",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax * 1.05},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

// WriteTrajectoryPNG renders the trajectory chart into a file.
func WriteTrajectoryPNG(path string, traj *simulation.Trajectory, opts ChartOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := RenderTrajectory(f, traj, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func chartColor(g int) drawing.Color {
	c := GenotypeColor(g)
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

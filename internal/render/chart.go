package render

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"throughputplot/internal/pipeline"
)

// DefaultPath is where the chart is written when no output path is configured.
const DefaultPath = "throughput_plot.png"

// ChartOptions controls the fixed labels and the image size.
type ChartOptions struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

// DefaultChartOptions returns the throughput chart labels on a 10x5 inch canvas.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		Title:  "Throughput Over Time",
		XLabel: "Time (seconds)",
		YLabel: "Requests per Second",
		Width:  10 * vg.Inch,
		Height: 5 * vg.Inch,
	}
}

// NewPlot builds a line chart of series: one connected line with a circle
// at every window present, over a background grid. Missing windows are
// bridged by the line. An empty series yields axes only.
func NewPlot(series pipeline.Series, opts ChartOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())

	if len(series) == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
		return p, nil
	}

	xys := make(plotter.XYs, len(series))
	for i, wc := range series {
		xys[i].X = float64(wc.Window)
		xys[i].Y = float64(wc.Count)
	}

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, errors.Wrap(err, "build throughput line")
	}
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	points.GlyphStyle.Radius = vg.Points(3)
	points.GlyphStyle.Color = line.LineStyle.Color
	p.Add(line, points)
	return p, nil
}

// WritePNG renders series as a PNG image to w.
func WritePNG(w io.Writer, series pipeline.Series, opts ChartOptions) error {
	p, err := NewPlot(series, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return errors.Wrap(err, "prepare png canvas")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "encode png")
	}
	return nil
}

// SaveFile renders series to a PNG file at path, replacing any existing file.
func SaveFile(path string, series pipeline.Series, opts ChartOptions) error {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create chart file %s", path)
	}

	bw := bufio.NewWriter(f)
	if err := WritePNG(bw, series, opts); err != nil {
		f.Close()
		return errors.WithMessagef(err, "write chart file %s", path)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "write chart file %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close chart file %s", path)
	}
	return nil
}

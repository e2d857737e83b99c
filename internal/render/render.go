// Package render draws read-out signals and spectra, as PNG figures with
// gonum/plot or as terminal charts with asciigraph.
package render

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/fidsim/internal/units"
)

const (
	figureWidth  = 8 * vg.Inch
	figureHeight = 5 * vg.Inch
)

var lineColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// FluxPNG writes the read-out signal against time in milliseconds.
func FluxPNG(path string, times, flux []float64) error {
	p, err := linePlot("Free induction decay", "t [ms]", "flux [a.u.]", times, flux, 1/units.MS)
	if err != nil {
		return err
	}
	return savePNG(p, path)
}

// SpectrumPNG writes an amplitude spectrum against frequency in kHz.
func SpectrumPNG(path string, freqs, amp []float64) error {
	p, err := linePlot("Amplitude spectrum", "f [kHz]", "amplitude", freqs, amp, 1/units.KHz)
	if err != nil {
		return err
	}
	return savePNG(p, path)
}

// WritePNG encodes p as a PNG of the default figure size.
func WritePNG(w io.Writer, p *plot.Plot) error {
	c := vgimg.NewWith(
		vgimg.UseWH(figureWidth, figureHeight),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))

	_, err := vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

func linePlot(title, xlabel, ylabel string, xs, ys []float64, xscale float64) (*plot.Plot, error) {
	if len(xs) != len(ys) || len(xs) == 0 {
		return nil, fmt.Errorf("plot data invalid: %d x values, %d y values", len(xs), len(ys))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i] * xscale
		pts[i].Y = ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Color = lineColor
	p.Add(line)
	return p, nil
}

func savePNG(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := WritePNG(bw, p); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// ASCII draws series as a terminal chart.
func ASCII(series []float64, caption string, height, width int) string {
	if len(series) == 0 {
		return ""
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// ASCIIMulti draws several series on one terminal chart, one color each.
func ASCIIMulti(series [][]float64, caption string, height, width int) string {
	if len(series) == 0 || len(series[0]) == 0 {
		return ""
	}
	colors := []asciigraph.AnsiColor{asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow}
	if len(series) < len(colors) {
		colors = colors[:len(series)]
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	)
}

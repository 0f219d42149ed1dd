// Package render draws plot data as an image.
package render

import (
	"fmt"
	"image/color"
	"io"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lemonberrylabs/fnplot/pkg/plot"
)

// Renderer turns plot data into an encoded image.
type Renderer interface {
	Render(w io.Writer, data *plot.Data) error
	ContentType() string
}

// Options controls the image size and encoding.
type Options struct {
	Width  vg.Length
	Height vg.Length

	// Format is any format gonum/plot can encode: png, svg, pdf...
	Format string
}

// DefaultOptions renders an 8x5 inch PNG.
var DefaultOptions = Options{Width: 8 * vg.Inch, Height: 5 * vg.Inch, Format: "png"}

var lineColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// Gonum renders with gonum.org/v1/plot.
type Gonum struct {
	opts Options
}

// New creates a Gonum renderer. Zero fields in opts take DefaultOptions.
func New(opts Options) *Gonum {
	if opts.Width == 0 {
		opts.Width = DefaultOptions.Width
	}
	if opts.Height == 0 {
		opts.Height = DefaultOptions.Height
	}
	if opts.Format == "" {
		opts.Format = DefaultOptions.Format
	}
	return &Gonum{opts: opts}
}

// ContentType returns the MIME type of the configured format.
func (g *Gonum) ContentType() string {
	switch g.opts.Format {
	case "png":
		return "image/png"
	case "svg":
		return "image/svg+xml"
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// Render draws every run of consecutive valid samples as its own line, so the
// curve is broken wherever the function is undefined.
func (g *Gonum) Render(w io.Writer, data *plot.Data) error {
	p := gplot.New()
	p.Title.Text, p.X.Label.Text, p.Y.Label.Text = data.Labels()
	p.Add(plotter.NewGrid())

	for _, seg := range Segments(data.Valid) {
		xys := make(plotter.XYs, 0, seg.End-seg.Start)
		for i := seg.Start; i < seg.End; i++ {
			xys = append(xys, plotter.XY{X: data.X[i], Y: data.Y[i]})
		}

		if len(xys) == 1 {
			s, err := plotter.NewScatter(xys)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			s.GlyphStyle.Color = lineColor
			s.GlyphStyle.Radius = vg.Points(1)
			p.Add(s)
			continue
		}

		l, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		l.LineStyle.Color = lineColor
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
	}

	if n := len(data.X); n > 0 {
		p.X.Min, p.X.Max = data.X[0], data.X[n-1]
	}

	wt, err := p.WriterTo(g.opts.Width, g.opts.Height, g.opts.Format)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Segment is a half-open index range [Start, End) of valid samples.
type Segment struct {
	Start, End int
}

// Segments splits valid into maximal runs of true values.
func Segments(valid []bool) []Segment {
	var out []Segment
	start := -1
	for i, ok := range valid {
		switch {
		case ok && start < 0:
			start = i
		case !ok && start >= 0:
			out = append(out, Segment{start, i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Segment{start, len(valid)})
	}
	return out
}

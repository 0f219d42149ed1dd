// Package plot drives a plot request through the pipeline: range checks,
// tokenizing, parsing, sampling and evaluation. It produces the data a
// renderer turns into an image.
package plot

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lemonberrylabs/fnplot/pkg/cache"
	"github.com/lemonberrylabs/fnplot/pkg/expr"
	"github.com/lemonberrylabs/fnplot/pkg/metrics"
	"github.com/lemonberrylabs/fnplot/pkg/sampler"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// Default labels applied when a request leaves them empty.
const (
	DefaultTitle  = "Plot of the function"
	DefaultXLabel = "x"
	DefaultYLabel = "y"
)

// Request is a plot request as submitted by a user.
type Request struct {
	FunctionString string  `json:"function_string" yaml:"function_string"`
	XMin           float64 `json:"x_min" yaml:"x_min"`
	XMax           float64 `json:"x_max" yaml:"x_max"`
	Title          string  `json:"title,omitempty" yaml:"title,omitempty"`
	XLabel         string  `json:"xlabel,omitempty" yaml:"xlabel,omitempty"`
	YLabel         string  `json:"ylabel,omitempty" yaml:"ylabel,omitempty"`

	// Points overrides the plotter's grid size when non-zero.
	Points int `json:"points,omitempty" yaml:"points,omitempty"`
}

// Data is the payload handed to a renderer. X, Y and Valid have equal
// length; Y[i] is NaN where Valid[i] is false.
type Data struct {
	X          []float64
	Y          []float64
	Valid      []bool
	ValidCount int

	Title  string
	XLabel string
	YLabel string

	// Expression is the parsed tree in canonical form.
	Expression string
}

// Labels returns the title and axis labels with defaults filled in.
func (d Data) Labels() (title, xlabel, ylabel string) {
	title, xlabel, ylabel = d.Title, d.XLabel, d.YLabel
	if title == "" {
		title = DefaultTitle
	}
	if xlabel == "" {
		xlabel = DefaultXLabel
	}
	if ylabel == "" {
		ylabel = DefaultYLabel
	}
	return title, xlabel, ylabel
}

// MarshalJSON encodes invalid samples as null, since JSON has no NaN.
func (d Data) MarshalJSON() ([]byte, error) {
	y := make([]*float64, len(d.Y))
	for i := range d.Y {
		if d.Valid[i] {
			y[i] = &d.Y[i]
		}
	}
	title, xlabel, ylabel := d.Labels()
	return json.Marshal(struct {
		X          []float64  `json:"x"`
		Y          []*float64 `json:"y"`
		Valid      []bool     `json:"valid"`
		ValidCount int        `json:"valid_count"`
		Title      string     `json:"title"`
		XLabel     string     `json:"xlabel"`
		YLabel     string     `json:"ylabel"`
		Expression string     `json:"expression"`
	}{d.X, y, d.Valid, d.ValidCount, title, xlabel, ylabel, d.Expression})
}

// UnmarshalJSON reverses MarshalJSON: null samples become NaN.
func (d *Data) UnmarshalJSON(b []byte) error {
	var raw struct {
		X          []float64  `json:"x"`
		Y          []*float64 `json:"y"`
		Valid      []bool     `json:"valid"`
		ValidCount int        `json:"valid_count"`
		Title      string     `json:"title"`
		XLabel     string     `json:"xlabel"`
		YLabel     string     `json:"ylabel"`
		Expression string     `json:"expression"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*d = Data{
		X:          raw.X,
		Y:          make([]float64, len(raw.Y)),
		Valid:      raw.Valid,
		ValidCount: raw.ValidCount,
		Title:      raw.Title,
		XLabel:     raw.XLabel,
		YLabel:     raw.YLabel,
		Expression: raw.Expression,
	}
	for i, v := range raw.Y {
		if v == nil {
			d.Y[i] = math.NaN()
			continue
		}
		d.Y[i] = *v
	}
	return nil
}

// Config configures a Plotter.
type Config struct {
	// Points is the default grid size. Zero means sampler.DefaultPoints.
	Points int

	// CacheSize is the parse cache capacity. Zero disables caching.
	CacheSize int

	Metrics *metrics.Metrics
}

// Plotter runs plot requests. It holds no per-request state and is safe for
// concurrent use.
type Plotter struct {
	points  int
	cache   *cache.Cache
	metrics *metrics.Metrics
}

// New creates a Plotter.
func New(cfg Config) (*Plotter, error) {
	points := cfg.Points
	if points == 0 {
		points = sampler.DefaultPoints
	}
	if err := sampler.ValidatePoints(points); err != nil {
		return nil, err
	}
	return &Plotter{
		points:  points,
		cache:   cache.New(cfg.CacheSize),
		metrics: cfg.Metrics,
	}, nil
}

// Points returns the default grid size.
func (p *Plotter) Points() int {
	return p.points
}

// PointsFor returns the grid size req will be sampled with.
func (p *Plotter) PointsFor(req Request) int {
	if req.Points != 0 {
		return req.Points
	}
	return p.points
}

// Compile tokenizes and parses s, consulting the parse cache.
func (p *Plotter) Compile(s string) (expr.Node, error) {
	tokens, err := expr.Tokenize(s)
	if err != nil {
		return nil, err
	}
	if p.cache == nil {
		return expr.ParseTokens(tokens)
	}
	node, hit, err := p.cache.GetOrParse(expr.Canonical(tokens), func() (expr.Node, error) {
		return expr.ParseTokens(tokens)
	})
	if err == nil {
		p.metrics.ObserveCache(hit)
	}
	return node, err
}

// Plot runs req through the pipeline. The range is checked before the
// expression is looked at; the first failing stage aborts the request with a
// *types.PlotError. Per-sample failures only clear Valid flags.
func (p *Plotter) Plot(ctx context.Context, req Request) (*Data, error) {
	start := time.Now()
	data, depth, err := p.plot(ctx, req)

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeCanceled
		if kind := types.KindOf(err); kind != "" {
			outcome = string(kind)
		}
	}
	p.metrics.ObservePlot(outcome, time.Since(start))

	if err != nil {
		log.Debug().Err(err).Str("expression", req.FunctionString).Msg("plot request failed")
		return nil, err
	}

	invalid := len(data.X) - data.ValidCount
	p.metrics.ObserveInvalid(invalid, len(data.X))
	log.Debug().
		Str("expression", data.Expression).
		Float64("x_min", req.XMin).
		Float64("x_max", req.XMax).
		Int("points", len(data.X)).
		Int("invalid", invalid).
		Int("depth", depth).
		Dur("elapsed", time.Since(start)).
		Msg("plot evaluated")
	return data, nil
}

// plot returns the data and the depth of the parsed tree.
func (p *Plotter) plot(ctx context.Context, req Request) (*Data, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	if err := sampler.ValidateRange(req.XMin, req.XMax); err != nil {
		return nil, 0, err
	}
	points := p.PointsFor(req)
	if err := sampler.ValidatePoints(points); err != nil {
		return nil, 0, err
	}

	node, err := p.Compile(req.FunctionString)
	if err != nil {
		return nil, 0, err
	}

	grid, err := sampler.Grid(req.XMin, req.XMax, points)
	if err != nil {
		return nil, 0, err
	}

	res, err := expr.Evaluate(node, grid)
	if err != nil {
		return nil, 0, err
	}

	return &Data{
		X:          res.X,
		Y:          res.Y,
		Valid:      res.Valid,
		ValidCount: res.ValidCount,
		Title:      req.Title,
		XLabel:     req.XLabel,
		YLabel:     req.YLabel,
		Expression: node.String(),
	}, expr.Depth(node), nil
}

// Package api implements the fnplot REST API.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/lemonberrylabs/fnplot/pkg/metrics"
	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/render"
	"github.com/lemonberrylabs/fnplot/pkg/stdlib"
	"github.com/lemonberrylabs/fnplot/pkg/store"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// Options configures optional parts of the server.
type Options struct {
	Metrics *metrics.Metrics

	// Gatherer backs GET /metrics. nil leaves the route unmounted.
	Gatherer prometheus.Gatherer

	// RateLimit is the sustained plot requests per second; 0 disables
	// throttling.
	RateLimit float64
	RateBurst int
}

// Server is the API server.
type Server struct {
	app      *fiber.App
	plotter  *plot.Plotter
	renderer render.Renderer
	history  store.Store
	metrics  *metrics.Metrics
	limiter  *rate.Limiter
}

// New creates a new API server.
func New(p *plot.Plotter, r render.Renderer, h store.Store, opts Options) *Server {
	srv := &Server{
		plotter:  p,
		renderer: r,
		history:  h,
		metrics:  opts.Metrics,
	}
	if opts.RateLimit > 0 {
		srv.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(srv.logRequests)

	app.Post("/v1/plot", srv.throttle, srv.plotJSON)
	app.Post("/v1/plot\\:render", srv.throttle, srv.plotImage)
	app.Get("/v1/functions", srv.listFunctions)
	app.Get("/v1/plots", srv.listPlots)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves HTTP requests on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app, so the web UI can share it.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run plots req and records the attempt in the history. It is shared by
// every front end.
func Run(ctx context.Context, p *plot.Plotter, h store.Store, req plot.Request) (*plot.Data, error) {
	data, err := p.Plot(ctx, req)
	if h != nil && !errors.Is(err, context.Canceled) {
		if rerr := h.Record(ctx, store.EntryFor(req, p.PointsFor(req), data, err)); rerr != nil {
			log.Warn().Err(rerr).Msg("could not record plot history")
		}
	}
	return data, err
}

// --- Middleware ---

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	elapsed := time.Since(start)

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	s.metrics.ObserveHTTP(c.Method(), c.Route().Path, status, elapsed)
	log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("duration", elapsed).
		Msg("request")
	return err
}

func (s *Server) throttle(c *fiber.Ctx) error {
	if s.limiter != nil && !s.limiter.Allow() {
		return errorJSON(c, 429, "RESOURCE_EXHAUSTED", "too many plot requests, slow down")
	}
	return c.Next()
}

// --- Plot Handlers ---

type plotRequest struct {
	FunctionString string   `json:"function_string"`
	XMin           *float64 `json:"x_min"`
	XMax           *float64 `json:"x_max"`
	Title          string   `json:"title"`
	XLabel         string   `json:"xlabel"`
	YLabel         string   `json:"ylabel"`
	Points         int      `json:"points"`
}

// decodePlotRequest checks for required fields before the pipeline runs.
func decodePlotRequest(c *fiber.Ctx) (plot.Request, error) {
	var body plotRequest
	if err := c.BodyParser(&body); err != nil {
		return plot.Request{}, fmt.Errorf("invalid request body: %v", err)
	}
	if body.FunctionString == "" {
		return plot.Request{}, errors.New("function string cannot be empty")
	}
	if body.XMin == nil || body.XMax == nil {
		return plot.Request{}, errors.New("both x_min and x_max must be provided")
	}
	return plot.Request{
		FunctionString: body.FunctionString,
		XMin:           *body.XMin,
		XMax:           *body.XMax,
		Title:          body.Title,
		XLabel:         body.XLabel,
		YLabel:         body.YLabel,
		Points:         body.Points,
	}, nil
}

func (s *Server) plotJSON(c *fiber.Ctx) error {
	req, err := decodePlotRequest(c)
	if err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", err.Error())
	}

	data, err := Run(c.UserContext(), s.plotter, s.history, req)
	if err != nil {
		return plotErrorJSON(c, err)
	}
	return c.JSON(data)
}

func (s *Server) plotImage(c *fiber.Ctx) error {
	req, err := decodePlotRequest(c)
	if err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", err.Error())
	}

	data, err := Run(c.UserContext(), s.plotter, s.history, req)
	if err != nil {
		return plotErrorJSON(c, err)
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, data); err != nil {
		log.Error().Err(err).Str("expression", req.FunctionString).Msg("rendering failed")
		return errorJSON(c, 500, "INTERNAL", fmt.Sprintf("rendering failed: %v", err))
	}
	c.Set(fiber.HeaderContentType, s.renderer.ContentType())
	return c.Send(buf.Bytes())
}

// --- Listing Handlers ---

func (s *Server) listFunctions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"functions": FunctionsToJSON(stdlib.Default()),
	})
}

func (s *Server) listPlots(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "limit must not be negative")
	}
	if s.history == nil {
		return c.JSON(fiber.Map{"plots": []*store.Entry{}})
	}

	entries, err := s.history.Recent(c.UserContext(), limit)
	if err != nil {
		return errorJSON(c, 500, "INTERNAL", fmt.Sprintf("reading history: %v", err))
	}
	if entries == nil {
		entries = []*store.Entry{}
	}
	return c.JSON(fiber.Map{"plots": entries})
}

// --- Helpers ---

// FunctionsToJSON lists the registry entries for API responses.
func FunctionsToJSON(r *stdlib.Registry) []fiber.Map {
	funcs := r.Funcs()
	items := make([]fiber.Map, len(funcs))
	for i, f := range funcs {
		kind := "function"
		if f.IsConstant() {
			kind = "constant"
		}
		item := fiber.Map{
			"name":      f.Name,
			"arity":     f.Arity,
			"kind":      kind,
			"signature": f.Signature(),
		}
		if f.DomainDoc != "" {
			item["domain"] = f.DomainDoc
		}
		items[i] = item
	}
	return items
}

func errorJSON(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func plotErrorJSON(c *fiber.Ctx, err error) error {
	pe, ok := types.AsPlotError(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errorJSON(c, 499, "CANCELLED", err.Error())
		}
		return errorJSON(c, 500, "INTERNAL", err.Error())
	}

	body := fiber.Map{
		"code":    400,
		"message": pe.Message,
		"status":  "INVALID_ARGUMENT",
		"kind":    pe.Kind,
	}
	if pe.Reason != "" {
		body["reason"] = pe.Reason
	}
	if pe.HasPos() {
		body["position"] = pe.Pos
	}
	return c.Status(400).JSON(fiber.Map{"error": body})
}

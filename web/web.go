// Package web provides the embedded HTML form UI for fnplot.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lemonberrylabs/fnplot/pkg/api"
	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/render"
	"github.com/lemonberrylabs/fnplot/pkg/stdlib"
	"github.com/lemonberrylabs/fnplot/pkg/store"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// recentLimit is how many history entries the form page lists.
const recentLimit = 10

// Handler serves the web UI pages.
type Handler struct {
	plotter  *plot.Plotter
	renderer render.Renderer
	history  store.Store
	funcMap  template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	Functions []string
	Data      any
}

// New creates a new web UI handler. history may be nil.
func New(p *plot.Plotter, r render.Renderer, history store.Store) *Handler {
	return &Handler{
		plotter:  p,
		renderer: r,
		history:  history,
		funcMap: template.FuncMap{
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"truncate":   truncate,
			"spaces":     spaces,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, data any) error {
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		Functions: stdlib.Default().Names(),
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/", h.form)
	app.Post("/plot", h.submit)
}

// --- Page Data Types ---

// formValues echoes the submitted form back into the page.
type formValues struct {
	Function string
	XMin     string
	XMax     string
	Title    string
	XLabel   string
	YLabel   string
}

type plotError struct {
	Message string
	Kind    string

	// Expression and Caret are set when the error points into the
	// expression.
	Expression string
	Caret      int
}

type indexContent struct {
	Form   formValues
	Image  template.URL
	Error  *plotError
	Valid  int
	Total  int
	Recent []*store.Entry
}

// --- Handlers ---

func (h *Handler) form(c *fiber.Ctx) error {
	return h.render(c, "index.html", &indexContent{
		Form:   formValues{XMin: "-10", XMax: "10"},
		Recent: h.recent(c.UserContext()),
	})
}

func (h *Handler) submit(c *fiber.Ctx) error {
	content := &indexContent{
		Form: formValues{
			Function: c.FormValue("function_string"),
			XMin:     c.FormValue("x_min"),
			XMax:     c.FormValue("x_max"),
			Title:    c.FormValue("title"),
			XLabel:   c.FormValue("xlabel"),
			YLabel:   c.FormValue("ylabel"),
		},
	}

	req, err := requestFromForm(content.Form)
	if err != nil {
		content.Error = &plotError{Message: err.Error()}
		content.Recent = h.recent(c.UserContext())
		return h.render(c, "index.html", content)
	}

	data, err := api.Run(c.UserContext(), h.plotter, h.history, req)
	if err != nil {
		content.Error = toPlotError(req.FunctionString, err)
		content.Recent = h.recent(c.UserContext())
		return h.render(c, "index.html", content)
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, data); err != nil {
		log.Error().Err(err).Str("expression", req.FunctionString).Msg("rendering failed")
		content.Error = &plotError{Message: fmt.Sprintf("rendering failed: %v", err)}
	} else {
		content.Image = template.URL("data:" + h.renderer.ContentType() + ";base64," +
			base64.StdEncoding.EncodeToString(buf.Bytes()))
		content.Valid = data.ValidCount
		content.Total = len(data.X)
	}
	content.Recent = h.recent(c.UserContext())
	return h.render(c, "index.html", content)
}

func (h *Handler) recent(ctx context.Context) []*store.Entry {
	if h.history == nil {
		return nil
	}
	entries, err := h.history.Recent(ctx, recentLimit)
	if err != nil {
		log.Warn().Err(err).Msg("could not read plot history")
		return nil
	}
	return entries
}

// --- Helpers ---

func requestFromForm(f formValues) (plot.Request, error) {
	if strings.TrimSpace(f.Function) == "" {
		return plot.Request{}, fmt.Errorf("function string cannot be empty")
	}
	if strings.TrimSpace(f.XMin) == "" || strings.TrimSpace(f.XMax) == "" {
		return plot.Request{}, fmt.Errorf("both x_min and x_max must be provided")
	}
	xMin, err := strconv.ParseFloat(strings.TrimSpace(f.XMin), 64)
	if err != nil {
		return plot.Request{}, fmt.Errorf("x_min must be a number, got %q", f.XMin)
	}
	xMax, err := strconv.ParseFloat(strings.TrimSpace(f.XMax), 64)
	if err != nil {
		return plot.Request{}, fmt.Errorf("x_max must be a number, got %q", f.XMax)
	}
	return plot.Request{
		FunctionString: f.Function,
		XMin:           xMin,
		XMax:           xMax,
		Title:          f.Title,
		XLabel:         f.XLabel,
		YLabel:         f.YLabel,
	}, nil
}

func toPlotError(expression string, err error) *plotError {
	pe, ok := types.AsPlotError(err)
	if !ok {
		return &plotError{Message: err.Error()}
	}
	out := &plotError{Message: pe.Message, Kind: string(pe.Kind)}
	if pe.HasPos() && pe.Kind != types.KindRange && pe.Kind != types.KindDomain {
		out.Expression = expression
		out.Caret = min(pe.Pos, len([]rune(expression)))
	}
	return out
}

func spaces(n int) string {
	return strings.Repeat(" ", n)
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

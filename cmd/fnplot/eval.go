package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// evalResult is the serialized outcome of one request. Undefined samples
// are null in Y.
type evalResult struct {
	Request    plot.Request `json:"request" yaml:"request"`
	Expression string       `json:"expression,omitempty" yaml:"expression,omitempty"`
	ValidCount int          `json:"valid_count" yaml:"valid_count"`
	X          []float64    `json:"x,omitempty" yaml:"x,omitempty,flow"`
	Y          []*float64   `json:"y,omitempty" yaml:"y,omitempty,flow"`
	Error      *evalError   `json:"error,omitempty" yaml:"error,omitempty"`
}

type evalError struct {
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message  string `json:"message" yaml:"message"`
	Position *int   `json:"position,omitempty" yaml:"position,omitempty"`
}

func (c *cli) evalCmd() *cobra.Command {
	var (
		xMin, xMax float64
		output     string
		file       string
	)
	cmd := &cobra.Command{
		Use:   "eval [EXPRESSION]",
		Short: "Sample an expression and print the values",
		Example: `  fnplot eval "sin(x)" --x-min -3.14 --x-max 3.14 --points 9
  fnplot eval --file requests.yaml --output yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reqs []plot.Request
			switch {
			case file != "" && len(args) > 0:
				return fmt.Errorf("give either an expression or --file, not both")
			case file != "":
				var err error
				if reqs, err = readBatch(file); err != nil {
					return err
				}
			case len(args) == 1:
				if !cmd.Flags().Changed("x-min") || !cmd.Flags().Changed("x-max") {
					return fmt.Errorf("both --x-min and --x-max must be provided")
				}
				reqs = []plot.Request{{FunctionString: args[0], XMin: xMin, XMax: xMax}}
			default:
				return fmt.Errorf("an expression or --file is required")
			}
			return c.eval(cmd, reqs, output)
		},
	}
	cmd.Flags().Float64Var(&xMin, "x-min", 0, "lower bound of the range")
	cmd.Flags().Float64Var(&xMax, "x-max", 0, "upper bound of the range")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a list of requests")
	return cmd
}

func (c *cli) eval(cmd *cobra.Command, reqs []plot.Request, output string) error {
	switch output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", output)
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	p, err := plot.New(plot.Config{Points: cfg.Points, CacheSize: cfg.CacheSize})
	if err != nil {
		return err
	}

	results := make([]evalResult, len(reqs))
	failed := 0
	for i, req := range reqs {
		data, err := p.Plot(cmd.Context(), req)
		results[i] = newEvalResult(req, data, err)
		if err != nil {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	switch output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(results)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		err = enc.Encode(results)
		if err == nil {
			err = enc.Close()
		}
	default:
		err = writeText(out, cmd.ErrOrStderr(), results)
	}
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(reqs))
	}
	return nil
}

func newEvalResult(req plot.Request, data *plot.Data, err error) evalResult {
	r := evalResult{Request: req}
	if err != nil {
		r.Error = &evalError{Message: err.Error()}
		if pe, ok := types.AsPlotError(err); ok {
			r.Error.Kind = string(pe.Kind)
			r.Error.Reason = string(pe.Reason)
			r.Error.Message = pe.Message
			if pe.HasPos() {
				pos := pe.Pos
				r.Error.Position = &pos
			}
		}
		return r
	}

	r.Expression = data.Expression
	r.ValidCount = data.ValidCount
	r.X = data.X
	r.Y = make([]*float64, len(data.Y))
	for i := range data.Y {
		if data.Valid[i] {
			r.Y[i] = &data.Y[i]
		}
	}
	return r
}

func writeText(out, errOut io.Writer, results []evalResult) error {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if r.Error != nil {
			writeError(errOut, r)
			continue
		}

		fmt.Fprintf(out, "f(x) = %s on [%s, %s]: %d of %d samples defined\n",
			r.Expression, formatFloat(r.Request.XMin), formatFloat(r.Request.XMax), r.ValidCount, len(r.X))
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "x\ty")
		for j, x := range r.X {
			y := "undefined"
			if r.Y[j] != nil {
				y = formatFloat(*r.Y[j])
			}
			fmt.Fprintf(tw, "%s\t%s\n", formatFloat(x), y)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// writeError prints the error with a caret under its position.
func writeError(w io.Writer, r evalResult) {
	kind := r.Error.Kind
	if r.Error.Reason != "" {
		kind += " (" + r.Error.Reason + ")"
	}
	if kind == "" {
		fmt.Fprintf(w, "error: %s\n", r.Error.Message)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", kind, r.Error.Message)
	if r.Error.Position != nil && r.Error.Kind != string(types.KindRange) {
		pe := &types.PlotError{Pos: *r.Error.Position}
		fmt.Fprintf(w, "  %s\n", indent(pe.Caret(r.Request.FunctionString)))
	}
}

func indent(s string) string {
	out := make([]byte, 0, len(s)+8)
	for i := 0; i < len(s); i++ {
		out = append(out, s[i])
		if s[i] == '\n' {
			out = append(out, ' ', ' ')
		}
	}
	return string(out)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func readBatch(path string) ([]plot.Request, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reqs []plot.Request
	if err := yaml.Unmarshal(b, &reqs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%s contains no requests", path)
	}
	return reqs, nil
}

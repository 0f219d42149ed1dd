package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/render"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

func (c *cli) renderCmd() *cobra.Command {
	var (
		req           plot.Request
		out           string
		width, height float64
	)
	cmd := &cobra.Command{
		Use:     "render EXPRESSION",
		Short:   "Render an expression to an image file",
		Example: `  fnplot render "sin(x) / x" --x-min -20 --x-max 20 -o sinc.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("x-min") || !cmd.Flags().Changed("x-max") {
				return fmt.Errorf("both --x-min and --x-max must be provided")
			}
			req.FunctionString = args[0]

			cfg, err := c.load()
			if err != nil {
				return err
			}
			p, err := plot.New(plot.Config{Points: cfg.Points})
			if err != nil {
				return err
			}

			data, err := p.Plot(cmd.Context(), req)
			if err != nil {
				if pe, ok := types.AsPlotError(err); ok && pe.HasPos() && pe.Kind != types.KindRange {
					fmt.Fprintln(cmd.ErrOrStderr(), pe.Caret(req.FunctionString))
				}
				return err
			}

			format := strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			if format == "" {
				format = "png"
			}
			r := render.New(render.Options{
				Width:  vg.Length(width) * vg.Inch,
				Height: vg.Length(height) * vg.Inch,
				Format: format,
			})

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := r.Render(f, data); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d of %d samples defined)\n", out, data.ValidCount, len(data.X))
			return nil
		},
	}
	cmd.Flags().Float64Var(&req.XMin, "x-min", 0, "lower bound of the range")
	cmd.Flags().Float64Var(&req.XMax, "x-max", 0, "upper bound of the range")
	cmd.Flags().StringVar(&req.Title, "title", "", "plot title (default \""+plot.DefaultTitle+"\")")
	cmd.Flags().StringVar(&req.XLabel, "xlabel", "", "x axis label")
	cmd.Flags().StringVar(&req.YLabel, "ylabel", "", "y axis label")
	cmd.Flags().StringVarP(&out, "out", "o", "plot.png", "output file; the extension picks the format (png, svg, pdf)")
	cmd.Flags().Float64Var(&width, "width", 8, "image width in inches")
	cmd.Flags().Float64Var(&height, "height", 5, "image height in inches")
	return cmd
}

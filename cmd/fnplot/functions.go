package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/fnplot/pkg/stdlib"
)

func (c *cli) functionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions and constants expressions may use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVALUE\tDOMAIN")
			for _, f := range stdlib.Default().Funcs() {
				value := ""
				if f.IsConstant() {
					value = strconv.FormatFloat(f.Value, 'g', -1, 64)
				}
				domain := f.DomainDoc
				if domain == "" {
					domain = "all reals"
				}
				if f.IsConstant() {
					domain = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Signature(), value, domain)
			}
			return tw.Flush()
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/compute_pass"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/graph"
	"github.com/spf13/cobra"
)

func newValidateCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Compile every kernel with naga and check both graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var errs []error

			for _, k := range compute_pass.Kernels() {
				_, err := compute_pass.CompileKernel(k.Name, k, o.validate)
				errs = append(errs, report(out, "kernel", k.Name, err))
			}
			for _, v := range graph.Variants() {
				g, err := graph.ForVariant(v)
				if err == nil {
					err = g.Validate()
				}
				errs = append(errs, report(out, "graph", string(v), err))
			}
			return errors.Join(errs...)
		},
	}
}

func report(out io.Writer, kind, name string, err error) error {
	if err != nil {
		fmt.Fprintf(out, "FAIL %s %s: %v\n", kind, name, err)
		return fmt.Errorf("%s %s: %w", kind, name, err)
	}
	fmt.Fprintf(out, "ok   %s %s\n", kind, name)
	return nil
}

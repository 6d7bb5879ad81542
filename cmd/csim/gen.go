package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/trace"
)

type genOptions struct {
	pattern string
	kind    string
	count   int
	base    uint64
	stride  uint64
	span    uint64
	seed    int64
	zipfS   float64
	zipfV   float64
	output  string
}

func newGenCommand() *cobra.Command {
	o := &genOptions{}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic trace.",
		Long: "`gen --pattern sequential|uniform|zipf` writes a synthetic trace " +
			"in the valgrind lackey format that csim reads.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generate(cmd, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.pattern, "pattern", "sequential", "Access pattern: sequential, uniform or zipf")
	flags.StringVar(&o.kind, "kind", "L", "Record kind: L, S or M")
	flags.IntVarP(&o.count, "count", "n", 1000, "Number of records")
	flags.Uint64Var(&o.base, "base", 0, "First address of a sequential pattern")
	flags.Uint64Var(&o.stride, "stride", 8, "Distance between sequential addresses")
	flags.Uint64Var(&o.span, "span", 1<<16, "Address range of the random patterns")
	flags.Int64Var(&o.seed, "seed", 1, "Random seed")
	flags.Float64Var(&o.zipfS, "zipf-s", 1.2, "Zipf exponent (> 1)")
	flags.Float64Var(&o.zipfV, "zipf-v", 1, "Zipf offset (>= 1)")
	flags.StringVarP(&o.output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func generate(cmd *cobra.Command, o *genOptions) error {
	if len(o.kind) != 1 {
		return errors.Wrapf(trace.ErrUnknownKind, "%q", o.kind)
	}
	kind, err := trace.ParseKind(o.kind[0])
	if err != nil {
		return err
	}

	var gen trace.Generator
	switch o.pattern {
	case "sequential":
		gen = trace.NewSequential(o.base, o.stride, o.count, kind)
	case "uniform":
		gen = trace.NewUniform(o.seed, o.span, o.count, kind)
	case "zipf":
		gen, err = trace.NewZipfian(o.seed, o.zipfS, o.zipfV, o.span, o.count, kind)
		if err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown pattern %q", o.pattern)
	}

	out := cmd.OutOrStdout()
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return errors.Wrap(err, "failed to create output")
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	_, err = trace.NewWriter(out).WriteAll(gen)
	return err
}

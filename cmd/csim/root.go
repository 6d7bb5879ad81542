package main

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/record"
	"github.com/sarchlab/csim/report"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

// newRootCommand builds the csim command tree.
func newRootCommand() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "csim -s <s> -E <E> -b <b> -t <tracefile>",
		Short: "Simulate an LRU set-associative cache on a valgrind memory trace.",
		Long: `csim replays a valgrind lackey trace against a cache with 2^s sets, ` +
			`E lines per set and 2^b-byte blocks, and prints the number of hits, ` +
			`misses and evictions. Instruction fetches are ignored and every ` +
			`modify counts as a load followed by a store.`,
		Example: `  csim -s 4 -E 1 -b 4 -t traces/yi.trace
  csim -v -s 8 -E 2 -b 4 -t traces/trans.trace
  csim --config l1.json --check -t traces/long.trace`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, o)
		},
	}

	flags := cmd.Flags()
	flags.UintVarP(&o.setBits, "set-bits", "s", 0, "Number of set index bits (2^s sets)")
	flags.IntVarP(&o.lines, "lines", "E", 0, "Number of lines per set (associativity)")
	flags.UintVarP(&o.blockBits, "block-bits", "b", 0, "Number of block bits (2^b-byte blocks)")
	flags.StringVarP(&o.tracePath, "trace", "t", "", "Valgrind trace to replay")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Print each access with its outcome")
	flags.BoolVar(&o.details, "details", false, "Print the geometry and hit rates after the summary")
	flags.BoolVar(&o.check, "check", false, "Check every access against the akita LRU directory")
	flags.StringVar(&o.configPath, "config", "", "JSON file with set_bits, lines and block_bits")
	flags.StringVar(&o.envFile, "env-file", ".env", "File with CSIM_S, CSIM_E, CSIM_B and CSIM_TRACE defaults")
	flags.StringVar(&o.recordPath, "record", "", "Record every access into <path>.sqlite3")
	flags.StringVar(&o.resultsPath, "results", report.DefaultResultsFile, "File to leave the counters in (empty to skip)")
	flags.StringVar(&o.cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")
	flags.StringVar(&o.logLevel, "log-level", "warn", "Diagnostic log level (trace, debug, info, warn, error)")

	cmd.AddCommand(newGenCommand())

	return cmd
}

func newLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid --log-level")
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)

	return logger, nil
}

func run(cmd *cobra.Command, o *options) error {
	logger, err := newLogger(o.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			return errors.Wrap(err, "failed to create CPU profile")
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			return errors.Wrap(err, "failed to start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	g, tracePath, err := o.resolve(cmd)
	if err != nil {
		return err
	}

	c, err := cache.New(g)
	if err != nil {
		return err
	}

	f, err := trace.Open(tracePath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	logger.WithFields(logrus.Fields{
		"s":     g.SetBits,
		"E":     g.Lines,
		"b":     g.BlockBits,
		"trace": tracePath,
	}).Info("starting simulation")

	out := cmd.OutOrStdout()
	simOpts := []sim.Option{sim.WithLogger(logger)}

	if o.verbose {
		simOpts = append(simOpts, sim.WithObserver(report.NewVerbose(out)))
	}

	if o.check {
		ref, err := cache.NewReference(g)
		if err != nil {
			return err
		}
		simOpts = append(simOpts, sim.WithReference(ref))
	}

	var recorder *record.Recorder
	if o.recordPath != "" {
		recorder, err = record.New(o.recordPath)
		if err != nil {
			return err
		}
		simOpts = append(simOpts, sim.WithObserver(recorder))
		logger.WithField("file", recorder.Filename()).Info("recording accesses")
	}

	s := sim.NewSimulator(c, simOpts...)
	if err := s.Run(f); err != nil {
		return errors.Wrap(err, tracePath)
	}

	stats := s.Stats()
	report.PrintSummary(out, stats)

	if o.details {
		report.PrintDetails(out, g, stats)
		_, _ = fmt.Fprintf(out, "Trace digest:  %016x\n", f.Digest())
	}

	if o.resultsPath != "" {
		if err := report.WriteResults(o.resultsPath, stats); err != nil {
			return err
		}
	}

	if recorder != nil {
		if err := recorder.Finish(tracePath, f.Digest(), g, stats); err != nil {
			return err
		}
	}

	return nil
}

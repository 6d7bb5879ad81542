// Package main provides a profiling wrapper for csim to identify performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/pkg/errors"

	"github.com/sarchlab/csim/benchmarks"
	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

var (
	setBits    = flag.Uint("s", 4, "Number of set index bits")
	lines      = flag.Int("E", 1, "Number of lines per set")
	blockBits  = flag.Uint("b", 4, "Number of block bits")
	workload   = flag.String("workload", "", "Profile a standard workload instead of a trace file")
	check      = flag.Bool("check", false, "Attach the reference model")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	maxRecords = flag.Int("max-records", 0, "max trace records to replay (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 && *workload == "" {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <tracefile>\n")
		fmt.Fprintf(os.Stderr, "       profile [options] -workload <name>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	g, src, closeSource, err := openSource()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeSource()

	c, err := cache.New(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var opts []sim.Option
	if *check {
		ref, err := cache.NewReference(g)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, sim.WithReference(ref))
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	fmt.Printf("Geometry: s=%d E=%d b=%d\n", g.SetBits, g.Lines, g.BlockBits)

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	s := sim.NewSimulator(c, opts...)

	start := time.Now()
	runErr := s.Run(trace.Limit(src, *maxRecords))
	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	stats := s.Stats()
	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Records replayed: %d\n", s.Records())
	fmt.Printf("Accesses simulated: %d\n", s.Accesses())
	fmt.Printf("hits:%d misses:%d evictions:%d\n", stats.Hits, stats.Misses, stats.Evictions)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if s.Accesses() > 0 {
		fmt.Printf("Accesses/second: %.0f\n", float64(s.Accesses())/elapsed.Seconds())
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// openSource returns the geometry and trace to profile, either a named
// standard workload or the trace file given as the first argument.
func openSource() (cache.Geometry, trace.Source, func(), error) {
	if *workload != "" {
		for _, w := range benchmarks.GetStandardWorkloads() {
			if w.Name != *workload {
				continue
			}
			src, err := w.Source()
			return w.Geometry, src, func() {}, err
		}
		return cache.Geometry{}, nil, nil, errors.Errorf("unknown workload %q", *workload)
	}

	g := cache.Geometry{SetBits: *setBits, Lines: *lines, BlockBits: *blockBits}
	f, err := trace.Open(flag.Arg(0))
	if err != nil {
		return g, nil, nil, err
	}
	fmt.Printf("Loaded: %s\n", f.Path())

	return g, f, func() { _ = f.Close() }, nil
}

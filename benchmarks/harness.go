// Package benchmarks runs synthetic cache workloads across geometries.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/report"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

// Result holds the outcome of a single workload run.
type Result struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Description explains what access pattern the workload exercises
	Description string `json:"description"`

	Geometry cache.Geometry `json:"geometry"`

	Records   uint64 `json:"records"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`

	// HitRate is hits / (hits + misses)
	HitRate float64 `json:"hit_rate"`

	// ReferenceChecked is true if every access was checked against the
	// akita LRU directory
	ReferenceChecked bool `json:"reference_checked"`

	// Err is set if the workload could not be run or the reference model
	// disagreed
	Err error `json:"-"`

	// Error is Err as text, filled in for JSON output
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Workload defines a single synthetic trace and the cache it runs on.
type Workload struct {
	Name        string
	Description string
	Geometry    cache.Geometry

	// Source returns a fresh trace for each run.
	Source func() (trace.Source, error)
}

// HarnessConfig configures the workload harness.
type HarnessConfig struct {
	// CheckReference attaches the akita reference model to every run
	CheckReference bool

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		CheckReference: true,
		Output:         os.Stdout,
	}
}

// Harness runs workloads and prints their results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:    config,
		workloads: []Workload{},
	}
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll executes all workloads and returns results.
func (h *Harness) RunAll() []Result {
	results := make([]Result, 0, len(h.workloads))

	for _, w := range h.workloads {
		results = append(results, h.runWorkload(w))
	}

	return results
}

func (h *Harness) runWorkload(w Workload) Result {
	result := Result{
		Name:        w.Name,
		Description: w.Description,
		Geometry:    w.Geometry,
	}

	c, err := cache.New(w.Geometry)
	if err != nil {
		result.Err = err
		return result
	}

	var opts []sim.Option
	if h.config.CheckReference {
		ref, err := cache.NewReference(w.Geometry)
		if err != nil {
			result.Err = err
			return result
		}
		opts = append(opts, sim.WithReference(ref))
		result.ReferenceChecked = true
	}

	src, err := w.Source()
	if err != nil {
		result.Err = err
		return result
	}

	s := sim.NewSimulator(c, opts...)

	start := time.Now()
	result.Err = s.Run(src)
	result.WallTime = time.Since(start)

	stats := s.Stats()
	result.Records = s.Records()
	result.Hits = stats.Hits
	result.Misses = stats.Misses
	result.Evictions = stats.Evictions
	result.HitRate = stats.HitRate()

	return result
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output, "=== csim Workload Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		g := r.Geometry
		_, _ = fmt.Fprintf(h.config.Output, "Workload: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Geometry:    s=%d E=%d b=%d (%s)\n",
			g.SetBits, g.Lines, g.BlockBits, report.FormatCapacity(g))
		if r.Err != nil {
			_, _ = fmt.Fprintf(h.config.Output, "  Error:       %v\n", r.Err)
			_, _ = fmt.Fprintln(h.config.Output, "")
			continue
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Records:     %s\n", humanize.Comma(int64(r.Records)))
		_, _ = fmt.Fprintf(h.config.Output, "  Hits:        %s\n", humanize.Comma(int64(r.Hits)))
		_, _ = fmt.Fprintf(h.config.Output, "  Misses:      %s\n", humanize.Comma(int64(r.Misses)))
		_, _ = fmt.Fprintf(h.config.Output, "  Evictions:   %s\n", humanize.Comma(int64(r.Evictions)))
		_, _ = fmt.Fprintf(h.config.Output, "  Hit Rate:    %.2f%%\n", 100*r.HitRate)
		if r.ReferenceChecked {
			_, _ = fmt.Fprintln(h.config.Output, "  Reference:   agrees")
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time:   %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,s,E,b,records,hits,misses,evictions,hit_rate,error")

	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = fmt.Sprintf("%q", r.Err.Error())
		}
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%d,%d,%d,%d,%.4f,%s\n",
			r.Name,
			r.Geometry.SetBits,
			r.Geometry.Lines,
			r.Geometry.BlockBits,
			r.Records,
			r.Hits,
			r.Misses,
			r.Evictions,
			r.HitRate,
			errText,
		)
	}
}

// Report is the JSON output format for a harness run.
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Results  []Result       `json:"results"`
	Summary  ReportSummary  `json:"summary"`
}

// ReportMetadata contains information about the harness run.
type ReportMetadata struct {
	// Timestamp when the workloads were run
	Timestamp string `json:"timestamp"`

	CheckReference bool `json:"check_reference"`
}

// ReportSummary contains aggregate counters across all workloads.
type ReportSummary struct {
	TotalWorkloads int    `json:"total_workloads"`
	Failed         int    `json:"failed"`
	TotalAccesses  uint64 `json:"total_accesses"`
	TotalHits      uint64 `json:"total_hits"`

	// HitRate is TotalHits / TotalAccesses
	HitRate float64 `json:"hit_rate"`

	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []Result) error {
	summary := ReportSummary{TotalWorkloads: len(results)}
	out := make([]Result, len(results))
	for i, r := range results {
		if r.Err != nil {
			r.Error = r.Err.Error()
			summary.Failed++
		}
		summary.TotalAccesses += r.Hits + r.Misses
		summary.TotalHits += r.Hits
		summary.TotalWallTime += r.WallTime
		out[i] = r
	}

	if summary.TotalAccesses > 0 {
		summary.HitRate = float64(summary.TotalHits) / float64(summary.TotalAccesses)
	}

	report := Report{
		Metadata: ReportMetadata{
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			CheckReference: h.config.CheckReference,
		},
		Results: out,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

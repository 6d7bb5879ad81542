// Package report formats simulation results.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/trace"
)

// DefaultResultsFile is where the driver leaves the counters for graders.
const DefaultResultsFile = ".csim_results"

// PrintSummary prints the counters on one line.
func PrintSummary(w io.Writer, stats cache.Statistics) {
	_, _ = fmt.Fprintf(w, "hits:%d misses:%d evictions:%d\n",
		stats.Hits, stats.Misses, stats.Evictions)
}

// WriteResults writes the counters as three space-separated numbers.
func WriteResults(path string, stats cache.Statistics) error {
	content := fmt.Sprintf("%d %d %d\n", stats.Hits, stats.Misses, stats.Evictions)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "failed to write results to %s", path)
	}
	return nil
}

// PrintDetails prints the geometry and the counters in a human-readable form.
func PrintDetails(w io.Writer, g cache.Geometry, stats cache.Statistics) {
	_, _ = fmt.Fprintf(w, "Cache geometry:\n")
	_, _ = fmt.Fprintf(w, "  Sets:        %s (s=%d)\n", humanize.Comma(int64(g.NumSets())), g.SetBits)
	_, _ = fmt.Fprintf(w, "  Lines/set:   %d (E=%d)\n", g.Lines, g.Lines)
	_, _ = fmt.Fprintf(w, "  Block size:  %s (b=%d)\n", humanize.IBytes(g.BlockSize()), g.BlockBits)
	_, _ = fmt.Fprintf(w, "  Tag bits:    %d\n", g.TagBits())
	_, _ = fmt.Fprintf(w, "  Capacity:    %s\n", FormatCapacity(g))

	_, _ = fmt.Fprintf(w, "Accesses:      %s\n", humanize.Comma(int64(stats.Accesses())))
	_, _ = fmt.Fprintf(w, "  Hits:        %s (%.2f%%)\n", humanize.Comma(int64(stats.Hits)), 100*stats.HitRate())
	_, _ = fmt.Fprintf(w, "  Misses:      %s (%.2f%%)\n", humanize.Comma(int64(stats.Misses)), 100*missRate(stats))
	_, _ = fmt.Fprintf(w, "  Evictions:   %s\n", humanize.Comma(int64(stats.Evictions)))
}

// FormatCapacity formats the cache size, or "overflow" when it exceeds 64 bits.
func FormatCapacity(g cache.Geometry) string {
	bytes, ok := g.Capacity()
	if !ok {
		return "overflow"
	}
	return humanize.IBytes(bytes)
}

func missRate(stats cache.Statistics) float64 {
	if stats.Accesses() == 0 {
		return 0
	}
	return float64(stats.Misses) / float64(stats.Accesses())
}

// Verbose echoes every record with its outcomes, e.g. "L 10,1 miss eviction".
type Verbose struct {
	w io.Writer
}

// NewVerbose creates a Verbose printer writing to w.
func NewVerbose(w io.Writer) *Verbose {
	return &Verbose{w: w}
}

// Observe prints one record. Instruction fetches are not printed.
func (v *Verbose) Observe(rec trace.Record, outcomes []cache.Outcome) {
	if rec.Kind == trace.Instruction {
		return
	}

	var sb strings.Builder
	sb.WriteString(rec.String())
	for _, o := range outcomes {
		sb.WriteByte(' ')
		sb.WriteString(o.String())
	}
	sb.WriteByte('\n')

	_, _ = io.WriteString(v.w, sb.String())
}

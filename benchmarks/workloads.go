package benchmarks

import (
	"io"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/trace"
)

// GetStandardWorkloads returns the standard set of workloads. Each one
// targets a specific cache behavior.
func GetStandardWorkloads() []Workload {
	return []Workload{
		sequentialSweep(),
		sequentialRepeat(),
		strideConflict(),
		strideConflictAssociative(),
		uniformRandom(),
		zipfHotSet(),
		modifyHeavy(),
	}
}

// GetCoreWorkloads returns a minimal set of workloads for quick validation.
func GetCoreWorkloads() []Workload {
	return []Workload{
		sequentialSweep(),
		strideConflict(),
		uniformRandom(),
	}
}

// 1. Sequential Sweep - one miss per block, the rest hit spatially
func sequentialSweep() Workload {
	return Workload{
		Name:        "sequential_sweep",
		Description: "64 KiB walked in 8-byte steps - one compulsory miss per 32-byte block",
		Geometry:    cache.Geometry{SetBits: 5, Lines: 1, BlockBits: 5},
		Source: func() (trace.Source, error) {
			return trace.NewSequential(0, 8, 8192, trace.Load), nil
		},
	}
}

// 2. Sequential Repeat - working set fits, second pass all hits
func sequentialRepeat() Workload {
	return Workload{
		Name:        "sequential_repeat",
		Description: "512 B swept twice on a 1 KiB cache - second pass hits",
		Geometry:    cache.Geometry{SetBits: 3, Lines: 4, BlockBits: 5},
		Source: func() (trace.Source, error) {
			return trace.Concat(
				trace.NewSequential(0, 32, 16, trace.Load),
				trace.NewSequential(0, 32, 16, trace.Load),
			), nil
		},
	}
}

// 3. Stride Conflict - every access maps to set 0 of a direct-mapped cache
func strideConflict() Workload {
	return Workload{
		Name:        "stride_conflict",
		Description: "Two blocks aliasing in a direct-mapped cache - every access evicts",
		Geometry:    cache.Geometry{SetBits: 4, Lines: 1, BlockBits: 4},
		Source: func() (trace.Source, error) {
			return alternate(0x0, 0x100, 1000), nil
		},
	}
}

// 4. Stride Conflict, 2-way - same pattern absorbed by associativity
func strideConflictAssociative() Workload {
	return Workload{
		Name:        "stride_conflict_2way",
		Description: "Same aliasing pair on a 2-way cache - only compulsory misses",
		Geometry:    cache.Geometry{SetBits: 4, Lines: 2, BlockBits: 4},
		Source: func() (trace.Source, error) {
			return alternate(0x0, 0x100, 1000), nil
		},
	}
}

// 5. Uniform Random - capacity-bound hit rate
func uniformRandom() Workload {
	return Workload{
		Name:        "uniform_random",
		Description: "Uniform loads over 64 KiB on a 4 KiB 4-way cache",
		Geometry:    cache.Geometry{SetBits: 4, Lines: 4, BlockBits: 6},
		Source: func() (trace.Source, error) {
			return trace.NewUniform(1, 64*1024, 20000, trace.Load), nil
		},
	}
}

// 6. Zipf Hot Set - skewed reuse rewards LRU
func zipfHotSet() Workload {
	return Workload{
		Name:        "zipf_hot_set",
		Description: "Zipf(1.2) loads over 1 MiB - a small hot set stays resident",
		Geometry:    cache.Geometry{SetBits: 6, Lines: 8, BlockBits: 6},
		Source: func() (trace.Source, error) {
			return trace.NewZipfian(1, 1.2, 1, 1<<20, 20000, trace.Load)
		},
	}
}

// 7. Modify Heavy - each modify hits on its second access
func modifyHeavy() Workload {
	return Workload{
		Name:        "modify_heavy",
		Description: "Uniform modifies - the store half of each modify always hits",
		Geometry:    cache.Geometry{SetBits: 2, Lines: 2, BlockBits: 4},
		Source: func() (trace.Source, error) {
			return trace.NewUniform(2, 4096, 5000, trace.Modify), nil
		},
	}
}

// alternate returns loads that ping-pong between two addresses.
func alternate(a, b uint64, count int) trace.Generator {
	i := 0
	return func() (trace.Record, error) {
		if i >= count {
			return trace.Record{}, io.EOF
		}
		addr := a
		if i%2 == 1 {
			addr = b
		}
		i++
		return trace.Record{Kind: trace.Load, Addr: addr, Size: 8}, nil
	}
}

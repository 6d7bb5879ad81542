// Command benchmark runs the synthetic cache workload harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv       Output results in CSV format (default: human-readable)
//	-json      Output results in JSON format
//	-no-check  Skip the akita reference model cross-check
//	-core      Run only the core workloads
//
// Example:
//
//	# Run all workloads with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/csim/benchmarks"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	noCheck := flag.Bool("no-check", false, "Skip the reference model cross-check")
	core := flag.Bool("core", false, "Run only the core workloads")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.CheckReference = !*noCheck
	config.Output = os.Stdout

	harness := benchmarks.NewHarness(config)
	if *core {
		harness.AddWorkloads(benchmarks.GetCoreWorkloads())
	} else {
		harness.AddWorkloads(benchmarks.GetStandardWorkloads())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("csim Workload Harness")
		fmt.Println("=====================")
		fmt.Printf("Reference check: %v\n", config.CheckReference)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	for _, r := range results {
		if r.Err != nil {
			os.Exit(1)
		}
	}
}

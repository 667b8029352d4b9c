// Package main provides the entry point for rsim, a cycle-accurate SPARC
// V9 out-of-order multiprocessor pipeline timing simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rsimgroup/rsim/cachebus"
	"github.com/rsimgroup/rsim/config"
	"github.com/rsimgroup/rsim/core"
	"github.com/rsimgroup/rsim/loader"
)

var (
	configPath = flag.String("config", "", "Path to a timing configuration JSON file")
	maxCycles  = flag.Int64("cycles", 0, "Stop after this many cycles (0 == run to completion)")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rsim [options] <program.json>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.LoadJSON(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timing config: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%x\n", prog.EntryPoint)
		fmt.Printf("Instructions: %d\n", prog.Len())
	}

	mem := cachebus.NewFlatMemory(1 << 24)
	cache := cachebus.New(cachebus.DefaultL1DConfig(), mem)
	proc := core.NewProcessor(cfg, prog, cache)

	cycles := proc.Run(*maxCycles)

	stats := proc.Stats
	fmt.Printf("\n")
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Halted: %v\n", proc.Halted())
	fmt.Printf("Exit code: %d\n", proc.ExitCode())
	fmt.Printf("Cycles run: %d (processor cycle counter: %d)\n", cycles, proc.Cycle())
	fmt.Printf("Instructions fetched: %d\n", stats.InstructionCount)
	fmt.Printf("Instructions graduated: %d\n", stats.Graduates)
	fmt.Printf("Utility (graduated/fetched): %.3f\n", stats.Utility())
	fmt.Printf("Branch predictions: %d correct, %d mispredicted\n", stats.BpbGoodPredicts, stats.BpbBadPredicts)
	fmt.Printf("Hard exceptions: %d, soft exceptions: %d\n", stats.HardExceptions, stats.SoftExceptions)
	fmt.Printf("VSB forwards: %d, limbo kills: %d, limbo redos: %d\n", stats.VSBForwards, stats.Kills, stats.Redos)
	fmt.Printf("\n")
	fmt.Printf("Availability losses:\n")
	for kind, count := range stats.Losses {
		fmt.Printf("  %v: %d\n", kind, count)
	}

	os.Exit(int(proc.ExitCode()))
}

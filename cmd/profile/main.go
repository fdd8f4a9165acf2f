// Package main provides a profiling wrapper for csim to identify performance
// bottlenecks in trace replay.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

var (
	setBits    = flag.Uint("s", 8, "number of set index bits")
	lines      = flag.Int("E", 4, "number of lines per set")
	blockBits  = flag.Uint("b", 6, "number of block offset bits")
	engine     = flag.String("engine", string(sim.EngineNative), "cache model: native or akita")
	repeat     = flag.Int("repeat", 100, "number of times to replay the trace")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <trace>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	tracePath := flag.Arg(0)
	geometry := cache.Geometry{
		SetIndexBits:    *setBits,
		BlockOffsetBits: *blockBits,
		Associativity:   *lines,
	}
	if err := geometry.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid geometry: %v\n", err)
		os.Exit(1)
	}

	// Load the whole trace up front so parsing stays out of the profile
	f, err := trace.Open(tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trace: %v\n", err)
		os.Exit(1)
	}
	records, err := trace.ReadAll(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading trace: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s (%d records)\n", tracePath, len(records))
	fmt.Printf("Geometry: %s, engine: %s\n", geometry, *engine)

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

	start := time.Now()

	var stats cache.Statistics
	for i := 0; i < *repeat; i++ {
		s, err := sim.NewSimulation(sim.Engine(*engine), geometry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating simulation: %v\n", err)
			os.Exit(1)
		}
		s.Replay(records)
		stats = s.Stats()
	}

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

	accesses := stats.Accesses() * uint64(*repeat)

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Last run: hits:%d misses:%d evictions:%d\n", stats.Hits, stats.Misses, stats.Evictions)
	fmt.Printf("Replays: %d\n", *repeat)
	fmt.Printf("Accesses classified: %d\n", accesses)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if accesses > 0 {
		fmt.Printf("Accesses/second: %.0f\n", float64(accesses)/elapsed.Seconds())
	}
}

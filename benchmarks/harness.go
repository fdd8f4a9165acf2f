// Package benchmarks provides synthetic access workloads and a harness that
// compares cache geometries on them.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

// Workload is a named, deterministic access stream.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains the access pattern
	Description string

	// Generate returns the records of the workload. It must return the same
	// records on every call.
	Generate func() []trace.Record
}

// BenchmarkResult holds the outcome of one workload on one geometry.
type BenchmarkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Geometry is rendered as "s=4 E=1 b=4"
	Geometry string `json:"geometry"`

	Records   int     `json:"records"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`

	// WallTime is the time spent replaying the records
	WallTime time.Duration `json:"wall_time_ns"`
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Geometries are the cache shapes every workload is replayed on
	Geometries []cache.Geometry

	// Engine selects the cache model
	Engine sim.Engine

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultGeometries returns a small sweep from direct-mapped to 4-way.
func DefaultGeometries() []cache.Geometry {
	return []cache.Geometry{
		{SetIndexBits: 5, BlockOffsetBits: 5, Associativity: 1},
		{SetIndexBits: 4, BlockOffsetBits: 5, Associativity: 2},
		{SetIndexBits: 3, BlockOffsetBits: 5, Associativity: 4},
		{SetIndexBits: 1, BlockOffsetBits: 5, Associativity: 16},
	}
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Geometries: DefaultGeometries(),
		Engine:     sim.EngineNative,
		Output:     os.Stdout,
	}
}

// Harness runs workloads and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Engine == "" {
		config.Engine = sim.EngineNative
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

// RunAll replays every workload on every geometry. Each run uses a fresh
// cache.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.workloads)*len(h.config.Geometries))

	for _, w := range h.workloads {
		records := w.Generate()
		for _, g := range h.config.Geometries {
			result, err := h.runWorkload(w, records, g)
			if err != nil {
				return results, err
			}
			results = append(results, result)
		}
	}

	return results, nil
}

func (h *Harness) runWorkload(w Workload, records []trace.Record, g cache.Geometry) (BenchmarkResult, error) {
	s, err := sim.NewSimulation(h.config.Engine, g)
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("workload %s on %s: %w", w.Name, g, err)
	}

	start := time.Now()
	s.Replay(records)
	wallTime := time.Since(start)

	stats := s.Stats()

	return BenchmarkResult{
		Name:        w.Name,
		Description: w.Description,
		Geometry:    g.String(),
		Records:     len(records),
		Hits:        stats.Hits,
		Misses:      stats.Misses,
		Evictions:   stats.Evictions,
		HitRate:     stats.HitRate(),
		WallTime:    wallTime,
	}, nil
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== csim Workload Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	last := ""
	for _, r := range results {
		if r.Name != last {
			_, _ = fmt.Fprintf(h.config.Output, "Workload: %s (%d records)\n", r.Name, r.Records)
			_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
			last = r.Name
		}
		_, _ = fmt.Fprintf(h.config.Output,
			"  %-14s hits:%-8d misses:%-8d evictions:%-8d hit rate: %5.1f%%\n",
			r.Geometry, r.Hits, r.Misses, r.Evictions, r.HitRate*100)
	}
	_, _ = fmt.Fprintln(h.config.Output, "")
}

// PrintCSV outputs results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "name,geometry,records,hits,misses,evictions,hit_rate")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%d,%d,%.4f\n",
			r.Name,
			r.Geometry,
			r.Records,
			r.Hits,
			r.Misses,
			r.Evictions,
			r.HitRate,
		)
	}
}

// BenchmarkReport is the JSON document written by PrintJSON.
type BenchmarkReport struct {
	Timestamp string            `json:"timestamp"`
	Engine    string            `json:"engine"`
	Results   []BenchmarkResult `json:"results"`
}

// PrintJSON outputs results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Engine:    string(h.config.Engine),
		Results:   results,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

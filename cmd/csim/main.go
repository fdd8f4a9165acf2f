// Package main provides the entry point for csim.
// csim replays a valgrind memory trace against a set-associative LRU cache
// and reports hits, misses and evictions.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/csim/config"
	"github.com/sarchlab/csim/record"
	"github.com/sarchlab/csim/report"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

func main() {
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	jsonOutput bool
	cfg        config.Config
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var usage *config.UsageError
	if errors.As(err, &usage) {
		fmt.Fprintf(stderr, "%s: Missing or invalid command line argument\n", cmd.Name())
		for _, p := range usage.Problems {
			fmt.Fprintf(stderr, "  %s\n", p)
		}
		fmt.Fprint(stderr, cmd.UsageString())
		return 1
	}

	fmt.Fprintf(stderr, "%s: %v\n", cmd.Name(), err)
	return 1
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "csim -s <num> -E <num> -b <num> -t <file>",
		Short: "Simulate a set-associative LRU cache over a valgrind trace.",
		Long: `csim replays the data accesses of a valgrind (lackey) trace against ` +
			`a cache with 2^s sets of E lines and 2^b-byte blocks, and prints ` +
			`the number of hits, misses and evictions.`,
		Example: "  csim -s 4 -E 1 -b 4 -t traces/yi.trace\n" +
			"  csim -v -s 8 -E 2 -b 4 -t traces/trans.trace",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return simulate(cfg, opts.jsonOutput, stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.IntVarP(&opts.cfg.SetIndexBits, "set-bits", "s", 0, "number of set index bits (2^s sets)")
	flags.IntVarP(&opts.cfg.Associativity, "lines", "E", 0, "number of lines per set")
	flags.IntVarP(&opts.cfg.BlockOffsetBits, "block-bits", "b", 0, "number of block offset bits (2^b-byte blocks)")
	flags.StringVarP(&opts.cfg.TracePath, "trace", "t", "", "valgrind trace file to replay")
	flags.BoolVarP(&opts.cfg.Verbose, "verbose", "v", false, "print the outcome of every access")
	flags.StringVar(&opts.configPath, "config", "", "JSON config file; explicit flags override it")
	flags.StringVar(&opts.cfg.Engine, "engine", string(sim.EngineNative), "cache model: native or akita")
	flags.StringVar(&opts.cfg.Malformed, "malformed", trace.Skip.String(), "malformed trace lines: skip or fail")
	flags.StringVar(&opts.cfg.RecordPath, "record", "", "SQLite database receiving one row per access")
	flags.StringVar(&opts.cfg.ResultsPath, "results", "", "also write \"hits misses evictions\" to this file")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print the summary as JSON")

	return cmd
}

// flagFields maps flag names to the config fields they set.
var flagFields = map[string]func(dst, src *config.Config){
	"set-bits":   func(dst, src *config.Config) { dst.SetIndexBits = src.SetIndexBits },
	"lines":      func(dst, src *config.Config) { dst.Associativity = src.Associativity },
	"block-bits": func(dst, src *config.Config) { dst.BlockOffsetBits = src.BlockOffsetBits },
	"trace":      func(dst, src *config.Config) { dst.TracePath = src.TracePath },
	"verbose":    func(dst, src *config.Config) { dst.Verbose = src.Verbose },
	"engine":     func(dst, src *config.Config) { dst.Engine = src.Engine },
	"malformed":  func(dst, src *config.Config) { dst.Malformed = src.Malformed },
	"record":     func(dst, src *config.Config) { dst.RecordPath = src.RecordPath },
	"results":    func(dst, src *config.Config) { dst.ResultsPath = src.ResultsPath },
}

// resolveConfig merges the config file, if any, with the flags that were set
// explicitly, and validates the result.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := &opts.cfg

	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		for name, set := range flagFields {
			if cmd.Flags().Changed(name) {
				set(loaded, &opts.cfg)
			}
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// simulate runs one configured simulation and prints its report.
func simulate(cfg *config.Config, jsonOutput bool, stdout, stderr io.Writer) error {
	logger := log.New(stderr, "csim: ", 0)

	src, err := trace.Open(cfg.TracePath,
		trace.WithPolicy(cfg.Policy()),
		trace.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	var simOpts []sim.Option

	var printer *sim.VerbosePrinter
	if cfg.Verbose {
		printer = sim.NewVerbosePrinter(stdout)
		simOpts = append(simOpts, sim.WithObserver(printer))
	}

	var recorder *record.SQLiteRecorder
	if cfg.RecordPath != "" {
		recorder, err = record.NewSQLiteRecorder(cfg.RecordPath)
		if err != nil {
			return err
		}
		defer func() { _ = recorder.Close() }()
		simOpts = append(simOpts, sim.WithObserver(recorder))
	}

	s, err := sim.NewSimulation(sim.Engine(cfg.Engine), cfg.Geometry(), simOpts...)
	if err != nil {
		return err
	}

	if err := s.Run(src); err != nil {
		return err
	}
	if printer != nil && printer.Err() != nil {
		return fmt.Errorf("failed to write verbose output: %w", printer.Err())
	}
	if src.Skipped() > 0 {
		logger.Printf("skipped %d malformed trace line(s)", src.Skipped())
	}

	stats := s.Stats()

	if recorder != nil {
		if err := recorder.Finish(cfg.TracePath, cfg.Geometry(), stats); err != nil {
			return err
		}
		if err := recorder.Close(); err != nil {
			return err
		}
		logger.Printf("access log written to %s (run %s)", recorder.Path(), recorder.RunID())
	}

	if cfg.ResultsPath != "" {
		if err := report.WriteResults(cfg.ResultsPath, stats); err != nil {
			return err
		}
	}

	if jsonOutput {
		return report.WriteJSON(stdout, cfg.Geometry(), stats)
	}
	return report.PrintSummary(stdout, stats)
}

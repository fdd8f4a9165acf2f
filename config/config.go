// Package config holds the settings of a simulation run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

// Config holds the settings of one simulation run.
type Config struct {
	// SetIndexBits is s; the cache has 2^s sets. Must be > 0.
	SetIndexBits int `json:"set_index_bits"`

	// Associativity is E, the number of lines per set. Must be > 0.
	Associativity int `json:"associativity"`

	// BlockOffsetBits is b; blocks are 2^b bytes. Must be > 0.
	BlockOffsetBits int `json:"block_offset_bits"`

	// TracePath is the valgrind trace to replay.
	TracePath string `json:"trace_path"`

	// Verbose echoes every classified record.
	Verbose bool `json:"verbose"`

	// Engine selects the cache model: "native" or "akita".
	Engine string `json:"engine"`

	// Malformed is the policy for bad record lines: "skip" or "fail".
	Malformed string `json:"malformed"`

	// RecordPath, if set, is a SQLite database receiving one row per access.
	RecordPath string `json:"record_path,omitempty"`

	// ResultsPath, if set, receives "hits misses evictions".
	ResultsPath string `json:"results_path,omitempty"`
}

// Default returns a Config with every optional field set. Geometry and trace
// path have no defaults.
func Default() *Config {
	return &Config{
		Engine:    string(sim.EngineNative),
		Malformed: trace.Skip.String(),
	}
}

// LoadConfig loads a Config from a JSON file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UsageError lists the problems that keep a Config from running.
type UsageError struct {
	Problems []string
}

func (e *UsageError) Error() string {
	return "invalid arguments: " + strings.Join(e.Problems, "; ")
}

// Validate checks that the Config can run. It returns a *UsageError that
// names every problem found.
func (c *Config) Validate() error {
	var problems []string

	if c.SetIndexBits <= 0 {
		problems = append(problems, "set index bits (-s) must be > 0")
	}
	if c.Associativity <= 0 {
		problems = append(problems, "associativity (-E) must be > 0")
	}
	if c.BlockOffsetBits <= 0 {
		problems = append(problems, "block offset bits (-b) must be > 0")
	}
	if c.TracePath == "" {
		problems = append(problems, "trace file (-t) is required")
	}
	if c.SetIndexBits > cache.MaxSetIndexBits {
		problems = append(problems,
			fmt.Sprintf("set index bits (-s) must be <= %d", cache.MaxSetIndexBits))
	}
	if c.BlockOffsetBits > cache.MaxBlockOffsetBits {
		problems = append(problems,
			fmt.Sprintf("block offset bits (-b) must be <= %d", cache.MaxBlockOffsetBits))
	}
	if c.SetIndexBits >= 0 && c.SetIndexBits <= cache.MaxSetIndexBits &&
		c.Associativity > cache.MaxLines>>c.SetIndexBits {
		problems = append(problems,
			fmt.Sprintf("total lines (2^s * E) must be <= %d", cache.MaxLines))
	}
	if c.SetIndexBits+c.BlockOffsetBits > cache.AddressBits {
		problems = append(problems,
			fmt.Sprintf("set index bits + block offset bits must be <= %d", cache.AddressBits))
	}

	switch sim.Engine(c.Engine) {
	case sim.EngineNative, sim.EngineAkita:
	default:
		problems = append(problems,
			fmt.Sprintf("engine must be %q or %q, got %q", sim.EngineNative, sim.EngineAkita, c.Engine))
	}

	if _, err := trace.ParsePolicy(c.Malformed); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return &UsageError{Problems: problems}
	}

	return nil
}

// Geometry returns the cache geometry. Call Validate first.
func (c *Config) Geometry() cache.Geometry {
	return cache.Geometry{
		SetIndexBits:    uint(c.SetIndexBits),
		BlockOffsetBits: uint(c.BlockOffsetBits),
		Associativity:   c.Associativity,
	}
}

// Policy returns the malformed-line policy, falling back to Skip.
func (c *Config) Policy() trace.Policy {
	p, _ := trace.ParsePolicy(c.Malformed)
	return p
}

// Package report renders the result of a simulation run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/csim/cache"
)

// DefaultResultsPath is where the cachelab driver looks for results.
const DefaultResultsPath = ".csim_results"

// PrintSummary writes "hits:H misses:M evictions:E".
func PrintSummary(w io.Writer, stats cache.Statistics) error {
	_, err := fmt.Fprintf(w, "hits:%d misses:%d evictions:%d\n",
		stats.Hits, stats.Misses, stats.Evictions)
	return err
}

// WriteResults writes "H M E" to path.
func WriteResults(path string, stats cache.Statistics) error {
	data := fmt.Sprintf("%d %d %d\n", stats.Hits, stats.Misses, stats.Evictions)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// Summary is the JSON form of a run.
type Summary struct {
	SetIndexBits    uint    `json:"set_index_bits"`
	Associativity   int     `json:"associativity"`
	BlockOffsetBits uint    `json:"block_offset_bits"`
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	Evictions       uint64  `json:"evictions"`
	HitRate         float64 `json:"hit_rate"`
}

// NewSummary combines a geometry and its statistics.
func NewSummary(geometry cache.Geometry, stats cache.Statistics) Summary {
	return Summary{
		SetIndexBits:    geometry.SetIndexBits,
		Associativity:   geometry.Associativity,
		BlockOffsetBits: geometry.BlockOffsetBits,
		Hits:            stats.Hits,
		Misses:          stats.Misses,
		Evictions:       stats.Evictions,
		HitRate:         stats.HitRate(),
	}
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, geometry cache.Geometry, stats cache.Statistics) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewSummary(geometry, stats))
}

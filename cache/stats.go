package cache

// Statistics holds the aggregate result of a simulation run.
type Statistics struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Accesses returns the number of classified accesses.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns hits / accesses, or 0 when nothing was accessed.
func (s Statistics) HitRate() float64 {
	total := s.Accesses()
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Counters accumulates Statistics from classification results. The zero value
// is ready to use.
type Counters struct {
	stats Statistics
}

// Record counts one classification.
func (c *Counters) Record(o Outcome) {
	switch o {
	case Hit:
		c.stats.Hits++
	case Miss:
		c.stats.Misses++
	case MissEviction:
		c.stats.Misses++
		c.stats.Evictions++
	}
}

// Snapshot returns the current counts.
func (c *Counters) Snapshot() Statistics {
	return c.stats
}

// Reset zeroes the counters.
func (c *Counters) Reset() {
	c.stats = Statistics{}
}

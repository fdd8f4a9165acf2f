// Package cache models the hit/miss/eviction behavior of a set-associative
// cache with LRU replacement. Only line metadata is kept; no data is stored.
package cache

import "fmt"

// Outcome classifies a single cache access.
type Outcome int

const (
	// Hit means a valid line already held the tag.
	Hit Outcome = iota
	// Miss means the tag was installed into a free line.
	Miss
	// MissEviction means the set was full and the LRU line was replaced.
	MissEviction
)

// String returns the label used in verbose trace output.
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case MissEviction:
		return "miss eviction"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// IsHit reports whether the access hit.
func (o Outcome) IsHit() bool {
	return o == Hit
}

// Evicted reports whether the access replaced a valid line.
func (o Outcome) Evicted() bool {
	return o == MissEviction
}

// Line is one slot of a set.
type Line struct {
	Valid bool
	Tag   uint64
	// Recency is the logical clock value of the last access to this line.
	Recency uint64
}

// Recorder receives every classification made by a model.
type Recorder interface {
	Record(o Outcome)
}

// Option configures a Cache.
type Option func(*Cache)

// WithRecorder installs the statistics hook invoked on each access.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) {
		c.recorder = r
	}
}

// Cache is a set-associative cache with LRU replacement.
type Cache struct {
	geometry Geometry

	// lines holds all S*E lines; sets[i] is a fixed-capacity view into it.
	lines []Line
	sets  [][]Line

	clock    uint64
	recorder Recorder
}

// New creates an empty cache. It panics if the geometry is invalid; callers
// that take geometry from users should call Geometry.Validate first.
func New(geometry Geometry, opts ...Option) *Cache {
	if err := geometry.Validate(); err != nil {
		panic(fmt.Sprintf("cache: %v", err))
	}

	numSets := geometry.SetCount()
	ways := geometry.Associativity

	c := &Cache{
		geometry: geometry,
		lines:    make([]Line, numSets*ways),
		sets:     make([][]Line, numSets),
	}
	for i := range c.sets {
		lo, hi := i*ways, (i+1)*ways
		c.sets[i] = c.lines[lo:hi:hi]
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Geometry returns the cache geometry.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Access looks up tag in the given set, updates the set and returns the
// classification.
func (c *Cache) Access(setIndex, tag uint64) Outcome {
	if setIndex >= uint64(len(c.sets)) {
		panic(fmt.Sprintf("cache: set index %d out of range [0, %d)",
			setIndex, len(c.sets)))
	}

	c.clock++
	set := c.sets[setIndex]

	outcome := c.touch(set, tag)
	if c.recorder != nil {
		c.recorder.Record(outcome)
	}

	return outcome
}

// AccessAddress decodes addr and accesses the matching set.
func (c *Cache) AccessAddress(addr uint64) Outcome {
	setIndex, tag := c.geometry.Decode(addr)
	return c.Access(setIndex, tag)
}

func (c *Cache) touch(set []Line, tag uint64) Outcome {
	for i := range set {
		if set[i].Valid && set[i].Tag == tag {
			set[i].Recency = c.clock
			return Hit
		}
	}

	outcome := Miss
	way := freeWay(set)
	if way < 0 {
		way = lruWay(set)
		outcome = MissEviction
	}

	set[way] = Line{Valid: true, Tag: tag, Recency: c.clock}

	return outcome
}

// freeWay returns the lowest-index invalid line, or -1 if the set is full.
func freeWay(set []Line) int {
	for i := range set {
		if !set[i].Valid {
			return i
		}
	}
	return -1
}

// lruWay returns the line with the smallest recency. Ties go to the lowest
// index.
func lruWay(set []Line) int {
	victim := 0
	for i := 1; i < len(set); i++ {
		if set[i].Recency < set[victim].Recency {
			victim = i
		}
	}
	return victim
}

// Lines returns a copy of the lines of a set.
func (c *Cache) Lines(setIndex uint64) []Line {
	set := c.sets[setIndex]
	out := make([]Line, len(set))
	copy(out, set)
	return out
}

// Reset invalidates every line and rewinds the logical clock. The recorder is
// kept.
func (c *Cache) Reset() {
	clear(c.lines)
	c.clock = 0
}

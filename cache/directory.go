package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Directory is a reference model backed by the Akita cache directory and its
// LRU victim finder. It classifies accesses with the same contract as Cache,
// so the two can be run side by side on one trace.
type Directory struct {
	geometry  Geometry
	directory *akitacache.DirectoryImpl
	recorder  Recorder
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithDirectoryRecorder installs the statistics hook invoked on each access.
func WithDirectoryRecorder(r Recorder) DirectoryOption {
	return func(d *Directory) {
		d.recorder = r
	}
}

// NewDirectory creates an empty Akita-backed model. It panics if the geometry
// is invalid.
func NewDirectory(geometry Geometry, opts ...DirectoryOption) *Directory {
	if err := geometry.Validate(); err != nil {
		panic(fmt.Sprintf("cache: %v", err))
	}

	d := &Directory{
		geometry: geometry,
		directory: akitacache.NewDirectory(
			geometry.SetCount(),
			geometry.Associativity,
			geometry.BlockSize(),
			akitacache.NewLRUVictimFinder(),
		),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Geometry returns the model geometry.
func (d *Directory) Geometry() Geometry {
	return d.geometry
}

// Access classifies an access to (setIndex, tag) and updates the directory.
func (d *Directory) Access(setIndex, tag uint64) Outcome {
	if setIndex >= uint64(d.geometry.SetCount()) {
		panic(fmt.Sprintf("cache: set index %d out of range [0, %d)",
			setIndex, d.geometry.SetCount()))
	}

	// Akita tags blocks by their block-aligned address.
	blockAddr := d.geometry.BlockAddress(setIndex, tag)

	outcome := d.touch(blockAddr)
	if d.recorder != nil {
		d.recorder.Record(outcome)
	}

	return outcome
}

func (d *Directory) touch(blockAddr uint64) Outcome {
	block := d.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		d.directory.Visit(block)
		return Hit
	}

	victim := d.directory.FindVictim(blockAddr)
	if victim == nil {
		panic("cache: akita directory returned no victim")
	}

	outcome := Miss
	if victim.IsValid {
		outcome = MissEviction
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	d.directory.Visit(victim)

	return outcome
}

// Reset invalidates every block.
func (d *Directory) Reset() {
	d.directory.Reset()
}

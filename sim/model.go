package sim

import (
	"fmt"

	"github.com/sarchlab/csim/cache"
)

// Engine names a Model implementation.
type Engine string

const (
	// EngineNative is the in-house LRU cache.
	EngineNative Engine = "native"
	// EngineAkita is the Akita directory reference model.
	EngineAkita Engine = "akita"
)

// NewModel builds an empty model of the given engine. The recorder, if not
// nil, is invoked on each classification.
func NewModel(engine Engine, geometry cache.Geometry, recorder cache.Recorder) (Model, error) {
	if err := geometry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}

	switch engine {
	case EngineNative, "":
		var opts []cache.Option
		if recorder != nil {
			opts = append(opts, cache.WithRecorder(recorder))
		}
		return cache.New(geometry, opts...), nil
	case EngineAkita:
		var opts []cache.DirectoryOption
		if recorder != nil {
			opts = append(opts, cache.WithDirectoryRecorder(recorder))
		}
		return cache.NewDirectory(geometry, opts...), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}

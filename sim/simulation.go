package sim

import (
	"github.com/sarchlab/csim/cache"
)

// Simulation bundles the state of one run: a fresh model, the counters it
// reports to, and the dispatcher that drives it. Simulations share nothing.
type Simulation struct {
	*Dispatcher

	model    Model
	counters *cache.Counters
}

// NewSimulation builds a fresh model of the given engine and wires its
// counters and the dispatcher options.
func NewSimulation(engine Engine, geometry cache.Geometry, opts ...Option) (*Simulation, error) {
	counters := &cache.Counters{}

	model, err := NewModel(engine, geometry, counters)
	if err != nil {
		return nil, err
	}

	return &Simulation{
		Dispatcher: NewDispatcher(model, opts...),
		model:      model,
		counters:   counters,
	}, nil
}

// Model returns the model driven by the simulation.
func (s *Simulation) Model() Model {
	return s.model
}

// Stats returns the counters accumulated so far.
func (s *Simulation) Stats() cache.Statistics {
	return s.counters.Snapshot()
}

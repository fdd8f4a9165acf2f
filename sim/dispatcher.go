// Package sim replays memory-access traces against a cache model.
package sim

import (
	"errors"
	"io"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/trace"
)

// Model classifies accesses to (setIndex, tag) pairs. Both cache.Cache and
// cache.Directory satisfy it.
type Model interface {
	Geometry() cache.Geometry
	Access(setIndex, tag uint64) cache.Outcome
}

// Source yields trace records until it returns io.EOF.
type Source interface {
	Next() (trace.Record, error)
}

// Event describes one classified trace record.
type Event struct {
	// Seq counts classified records from 1.
	Seq      uint64
	Record   trace.Record
	SetIndex uint64
	Tag      uint64
	// Outcomes has one entry for loads and stores and two for modifies.
	Outcomes []cache.Outcome
}

// Observer is notified after each classified record.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observers = append(d.observers, o)
	}
}

// Dispatcher feeds trace records to a Model in order.
type Dispatcher struct {
	model     Model
	geometry  cache.Geometry
	observers []Observer
	seq       uint64
}

// NewDispatcher creates a Dispatcher that drives model.
func NewDispatcher(model Model, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		model:    model,
		geometry: model.Geometry(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch classifies one record. Loads and stores access the cache once;
// modifies access it twice. Other kinds are ignored and return nil.
func (d *Dispatcher) Dispatch(rec trace.Record) []cache.Outcome {
	var accesses int
	switch rec.Kind {
	case trace.Load, trace.Store:
		accesses = 1
	case trace.Modify:
		accesses = 2
	default:
		return nil
	}

	setIndex, tag := d.geometry.Decode(rec.Address)

	outcomes := make([]cache.Outcome, accesses)
	for i := range outcomes {
		outcomes[i] = d.model.Access(setIndex, tag)
	}

	d.seq++
	if len(d.observers) > 0 {
		e := Event{
			Seq:      d.seq,
			Record:   rec,
			SetIndex: setIndex,
			Tag:      tag,
			Outcomes: outcomes,
		}
		for _, o := range d.observers {
			o.Observe(e)
		}
	}

	return outcomes
}

// Replay dispatches records in order.
func (d *Dispatcher) Replay(records []trace.Record) {
	for _, rec := range records {
		d.Dispatch(rec)
	}
}

// Run dispatches records from src until it is exhausted. Any error other
// than io.EOF stops the run and is returned.
func (d *Dispatcher) Run(src Source) error {
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		d.Dispatch(rec)
	}
}

// Dispatched returns the number of classified records.
func (d *Dispatcher) Dispatched() uint64 {
	return d.seq
}

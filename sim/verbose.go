package sim

import (
	"fmt"
	"io"
	"strings"
)

// VerbosePrinter writes one line per classified record, for example
// "M 20,1 miss eviction hit".
type VerbosePrinter struct {
	w   io.Writer
	err error
}

// NewVerbosePrinter creates a VerbosePrinter writing to w.
func NewVerbosePrinter(w io.Writer) *VerbosePrinter {
	return &VerbosePrinter{w: w}
}

// Observe prints the record and its outcomes.
func (p *VerbosePrinter) Observe(e Event) {
	if p.err != nil {
		return
	}

	labels := make([]string, len(e.Outcomes))
	for i, o := range e.Outcomes {
		labels[i] = o.String()
	}

	_, p.err = fmt.Fprintf(p.w, "%s %s\n", e.Record, strings.Join(labels, " "))
}

// Err returns the first write error, if any.
func (p *VerbosePrinter) Err() error {
	return p.err
}

package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

// Policy decides what a Reader does with a malformed record line.
type Policy int

const (
	// Skip logs the line and continues with the next one.
	Skip Policy = iota
	// Fail stops reading and returns the *ParseError.
	Fail
)

// ParsePolicy maps "skip" and "fail" to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "skip", "":
		return Skip, nil
	case "fail":
		return Fail, nil
	default:
		return Skip, fmt.Errorf("unknown malformed-line policy %q (want skip or fail)", name)
	}
}

func (p Policy) String() string {
	if p == Fail {
		return "fail"
	}
	return "skip"
}

// maxLineLength bounds a single trace line.
const maxLineLength = 1 << 20

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithPolicy sets the malformed-line policy. The default is Skip.
func WithPolicy(p Policy) ReaderOption {
	return func(r *Reader) {
		r.policy = p
	}
}

// WithLogger sets where skipped lines are reported. A nil logger silences
// them.
func WithLogger(l *log.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = l
	}
}

// Reader streams records from a trace.
type Reader struct {
	scanner *bufio.Scanner
	policy  Policy
	logger  *log.Logger

	line    int
	skipped int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	reader := &Reader{
		scanner: scanner,
		policy:  Skip,
		logger:  log.Default(),
	}

	for _, opt := range opts {
		opt(reader)
	}

	return reader
}

// Next returns the next record. It returns io.EOF when the trace is
// exhausted.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()

		rec, ok, err := ParseLine(text)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Line = r.line
			}
			if r.policy == Fail {
				return Record{}, err
			}

			r.skipped++
			if r.logger != nil {
				r.logger.Printf("skipping malformed %v", err)
			}
			continue
		}
		if !ok {
			continue
		}

		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to read trace: %w", err)
	}

	return Record{}, io.EOF
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// Skipped returns the number of malformed lines dropped under Skip.
func (r *Reader) Skipped() int {
	return r.skipped
}

// ReadAll collects every record of a trace.
func ReadAll(r io.Reader, opts ...ReaderOption) ([]Record, error) {
	reader := NewReader(r, opts...)

	var records []Record
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// File is a Reader over an opened trace file.
type File struct {
	*Reader
	f *os.File
}

// Open opens a trace file for reading.
func Open(path string, opts ...ReaderOption) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &File{Reader: NewReader(f, opts...), f: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

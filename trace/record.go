// Package trace reads memory-access traces in the valgrind lackey format:
//
//	I 0400d7d4,8
//	 L 7ff0005b8,8
//	 S 7ff0005c8,8
//	 M 0421c7f0,4
//
// Instruction fetches start in column 0; data accesses are indented by one
// space.
package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the operation letter of a trace record.
type Kind byte

const (
	// Instruction is an instruction fetch. It is never classified.
	Instruction Kind = 'I'
	// Load is a data read.
	Load Kind = 'L'
	// Store is a data write.
	Store Kind = 'S'
	// Modify is a read followed by a write to the same address.
	Modify Kind = 'M'
)

// IsData reports whether records of this kind touch the data cache.
func (k Kind) IsData() bool {
	return k == Load || k == Store || k == Modify
}

func (k Kind) String() string {
	return string(rune(k))
}

// Record is one parsed trace line.
type Record struct {
	Kind    Kind
	Address uint64
	// Size is the access size in bytes. It is informational only.
	Size uint32
}

// String formats the record the way verbose output echoes it, e.g. "L 10,1".
func (r Record) String() string {
	return fmt.Sprintf("%c %x,%d", r.Kind, r.Address, r.Size)
}

// ParseError reports a record line whose address or size cannot be parsed.
type ParseError struct {
	// Line is the 1-based line number, or 0 when parsing a lone line.
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("trace line %q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses a single trace line. ok is false for lines that are not
// records (blank lines, tool banners, unknown letters); those are not errors.
func ParseLine(line string) (rec Record, ok bool, err error) {
	kind, fields, ok := splitRecord(line)
	if !ok {
		return Record{}, false, nil
	}

	addrText, sizeText, found := strings.Cut(fields, ",")
	if !found {
		return Record{}, false, &ParseError{Text: line, Err: fmt.Errorf("missing ',' between address and size")}
	}

	addrText = strings.TrimSpace(addrText)
	addrText = strings.TrimPrefix(strings.TrimPrefix(addrText, "0x"), "0X")
	addr, err := strconv.ParseUint(addrText, 16, 64)
	if err != nil {
		return Record{}, false, &ParseError{Text: line, Err: fmt.Errorf("bad address: %w", err)}
	}

	size, err := strconv.ParseUint(strings.TrimSpace(sizeText), 10, 32)
	if err != nil {
		return Record{}, false, &ParseError{Text: line, Err: fmt.Errorf("bad size: %w", err)}
	}

	return Record{Kind: kind, Address: addr, Size: uint32(size)}, true, nil
}

// splitRecord recognizes the record prefix and returns the text after the
// operation letter.
func splitRecord(line string) (Kind, string, bool) {
	line = strings.TrimRight(line, "\r\n")

	var kind Kind
	var rest string
	switch {
	case len(line) >= 2 && line[0] == ' ':
		kind, rest = Kind(line[1]), line[2:]
	case len(line) >= 1 && line[0] == byte(Instruction):
		kind, rest = Instruction, line[1:]
	default:
		return 0, "", false
	}

	if kind != Instruction && !kind.IsData() {
		return 0, "", false
	}
	// The letter must be followed by a separator, so " Lx..." is not a record.
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return 0, "", false
	}

	return kind, strings.TrimSpace(rest), true
}

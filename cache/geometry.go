package cache

import "fmt"

// AddressBits is the width of a trace address.
const AddressBits = 64

// MaxSetIndexBits bounds the number of sets a Cache will allocate (2^30 sets).
const MaxSetIndexBits = 30

// MaxBlockOffsetBits keeps BlockSize representable as an int.
const MaxBlockOffsetBits = 62

// MaxLines bounds S*E, the number of lines a Cache will allocate.
const MaxLines = 1 << 30

// Geometry describes the shape of a set-associative cache.
type Geometry struct {
	// SetIndexBits (s) is the number of address bits that select a set.
	SetIndexBits uint
	// BlockOffsetBits (b) is the number of address bits inside a block.
	BlockOffsetBits uint
	// Associativity (E) is the number of lines per set.
	Associativity int
}

// SetCount returns S = 2^s.
func (g Geometry) SetCount() int {
	return 1 << g.SetIndexBits
}

// BlockSize returns B = 2^b in bytes.
func (g Geometry) BlockSize() int {
	return 1 << g.BlockOffsetBits
}

// LineCount returns the total number of lines, S*E.
func (g Geometry) LineCount() int {
	return g.SetCount() * g.Associativity
}

// Decode splits an address into its set index and tag. The block offset is
// dropped.
func (g Geometry) Decode(addr uint64) (setIndex, tag uint64) {
	block := addr >> g.BlockOffsetBits
	setIndex = block & (uint64(1)<<g.SetIndexBits - 1)
	tag = block >> g.SetIndexBits
	return setIndex, tag
}

// BlockAddress rebuilds the block-aligned address that decodes to
// (setIndex, tag).
func (g Geometry) BlockAddress(setIndex, tag uint64) uint64 {
	return (tag<<g.SetIndexBits | setIndex) << g.BlockOffsetBits
}

// Validate checks that the geometry can back a Cache.
func (g Geometry) Validate() error {
	if g.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0, got %d", g.Associativity)
	}
	if g.SetIndexBits > MaxSetIndexBits {
		return fmt.Errorf("set index bits must be <= %d, got %d",
			MaxSetIndexBits, g.SetIndexBits)
	}
	if g.BlockOffsetBits > MaxBlockOffsetBits {
		return fmt.Errorf("block offset bits must be <= %d, got %d",
			MaxBlockOffsetBits, g.BlockOffsetBits)
	}
	if g.Associativity > MaxLines>>g.SetIndexBits {
		return fmt.Errorf("total lines (2^s * E) must be <= %d, got 2^%d * %d",
			MaxLines, g.SetIndexBits, g.Associativity)
	}
	if g.SetIndexBits+g.BlockOffsetBits > AddressBits {
		return fmt.Errorf("set index bits + block offset bits must be <= %d, got %d",
			AddressBits, g.SetIndexBits+g.BlockOffsetBits)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("s=%d E=%d b=%d", g.SetIndexBits, g.Associativity, g.BlockOffsetBits)
}

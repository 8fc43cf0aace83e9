package minhash

import (
	"errors"
	"fmt"
)

var (
	// ErrZeroRegisters is returned when a sketch is created with no registers.
	ErrZeroRegisters = errors.New("minhash: number of registers must be positive")

	// ErrNilSketch is returned when a sketch argument is nil or released.
	ErrNilSketch = errors.New("minhash: sketch is nil or released")

	// ErrIncompatible is returned when two sketches differ in register count
	// or hash family and cannot be copied or merged.
	ErrIncompatible = errors.New("minhash: sketches are not compatible")

	// ErrInvalidOption is returned for an unknown hasher or lane count.
	ErrInvalidOption = errors.New("minhash: invalid option")
)

// Sketch is a non-thread-safe MinHash sketch of a set.
//
// Every register holds the running maximum of h(i) = a + i*b (mod 2^32) over
// the keys added, where a and b are the two halves of a single 64-bit key
// hash. The fraction of equal registers between two sketches estimates the
// Jaccard similarity of the underlying sets.
type Sketch struct {
	raw       []byte   // Raw allocation to keep aligned memory alive for GC
	registers []uint32 // n registers, cache-line aligned
	n         uint32   // Number of registers
	hasher    Hasher   // Key hash function
	seed      uint64   // Key hash seed
	lanes     Lanes    // Lane count used by the bulk loops
	proc      batch
}

type options struct {
	hasher Hasher
	seed   uint64
	lanes  Lanes
}

// Option configures a sketch created by [New].
type Option func(*options)

// WithHasher selects the key hash function. Defaults to [HasherMetro].
func WithHasher(h Hasher) Option {
	return func(o *options) { o.hasher = h }
}

// WithSeed overrides [DefaultSeed].
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithLanes pins the lane count instead of probing the CPU.
func WithLanes(l Lanes) Option {
	return func(o *options) { o.lanes = l }
}

// New creates a sketch with nRegisters zeroed registers.
// The register buffer is cache-line aligned and padded to a whole number of
// cache lines so sketches processed on different cores never share a line.
func New(nRegisters uint32, opts ...Option) (*Sketch, error) {
	if nRegisters == 0 {
		return nil, ErrZeroRegisters
	}

	o := options{hasher: HasherMetro, seed: DefaultSeed, lanes: LanesAuto}
	for _, opt := range opts {
		opt(&o)
	}

	if !o.hasher.valid() {
		return nil, fmt.Errorf("%w: unknown hasher %s", ErrInvalidOption, o.hasher)
	}
	if o.lanes == LanesAuto {
		o.lanes = DetectLanes()
	}
	if !o.lanes.valid() {
		return nil, fmt.Errorf("%w: unsupported lane count %d", ErrInvalidOption, int(o.lanes))
	}

	return newSketch(nRegisters, o), nil
}

func newSketch(n uint32, o options) *Sketch {
	raw, registers := makeAlignedUint32Slice(int(n))

	return &Sketch{
		raw:       raw,
		registers: registers,
		n:         n,
		hasher:    o.hasher,
		seed:      o.seed,
		lanes:     o.lanes,
		proc:      newBatch(o.lanes),
	}
}

// live reports whether s can be read or written.
func (s *Sketch) live() bool {
	return s != nil && s.registers != nil
}

// compatible returns nil if s and other are live and share register count
// and hash family.
func (s *Sketch) compatible(other *Sketch) error {
	if !s.live() || !other.live() {
		return ErrNilSketch
	}
	if s.n != other.n {
		return fmt.Errorf("%w: %d registers vs %d", ErrIncompatible, s.n, other.n)
	}
	if s.hasher != other.hasher || s.seed != other.seed {
		return fmt.Errorf("%w: hash %s/%#x vs %s/%#x", ErrIncompatible, s.hasher, s.seed, other.hasher, other.seed)
	}
	return nil
}

// CopyTo overwrites dst's registers with the registers of s and returns dst.
// Neither sketch is modified on error.
func (s *Sketch) CopyTo(dst *Sketch) (*Sketch, error) {
	if err := s.compatible(dst); err != nil {
		return nil, err
	}

	copy(dst.registers, s.registers)
	return dst, nil
}

// Clone returns a new sketch with the same options and registers as s.
func (s *Sketch) Clone() (*Sketch, error) {
	if !s.live() {
		return nil, ErrNilSketch
	}

	c := newSketch(s.n, options{hasher: s.hasher, seed: s.seed, lanes: s.lanes})
	return s.CopyTo(c)
}

// Release drops the register buffer. A released sketch behaves like a nil
// sketch: adds are ignored and comparisons fail. Release on nil is a no-op.
func (s *Sketch) Release() {
	if s == nil {
		return
	}
	s.raw = nil
	s.registers = nil
}

// Reset zeroes every register, returning the sketch to its empty state.
func (s *Sketch) Reset() {
	if !s.live() {
		return
	}
	clear(s.registers)
}

// Add adds key to the sketch. Empty keys are ignored.
func (s *Sketch) Add(key []byte) {
	if !s.live() || len(key) == 0 {
		return
	}
	base, stride := hashData(s.hasher, s.seed, key)
	s.proc.add(s.registers, base, stride)
}

// AddString adds a string key to the sketch without allocating.
func (s *Sketch) AddString(key string) {
	if !s.live() || len(key) == 0 {
		return
	}
	base, stride := hashString(s.hasher, s.seed, key)
	s.proc.add(s.registers, base, stride)
}

// Estimate returns the fraction of registers that hold the same value in s
// and other, an estimate of the Jaccard similarity of the two sets.
// Returns 0 if either sketch is nil or they are not compatible.
func (s *Sketch) Estimate(other *Sketch) float64 {
	if s.compatible(other) != nil {
		return 0
	}
	eq := s.proc.countEqual(s.registers, other.registers)
	return float64(eq) / float64(s.n)
}

// Equal reports whether s and other are compatible and hold identical
// registers.
func (s *Sketch) Equal(other *Sketch) bool {
	if s.compatible(other) != nil {
		return false
	}
	return s.proc.equal(s.registers, other.registers)
}

// Merge folds src into s by taking the register-wise maximum, so s becomes
// the sketch of the union of both sets. Returns s. Neither sketch is
// modified on error.
func (s *Sketch) Merge(src *Sketch) (*Sketch, error) {
	if err := s.compatible(src); err != nil {
		return nil, err
	}

	s.proc.union(s.registers, src.registers)
	return s, nil
}

// NumRegisters returns the number of registers.
func (s *Sketch) NumRegisters() uint32 {
	if s == nil {
		return 0
	}
	return s.n
}

// Hasher returns the key hash function.
func (s *Sketch) Hasher() Hasher {
	return s.hasher
}

// Seed returns the key hash seed.
func (s *Sketch) Seed() uint64 {
	return s.seed
}

// Lanes returns the lane count used by the sketch's bulk loops.
func (s *Sketch) Lanes() Lanes {
	return s.lanes
}

// Registers returns a copy of the register values.
func (s *Sketch) Registers() []uint32 {
	if !s.live() {
		return nil
	}
	out := make([]uint32, len(s.registers))
	copy(out, s.registers)
	return out
}

// SizeBytes returns the size of the aligned register buffer in bytes.
func (s *Sketch) SizeBytes() int {
	if !s.live() {
		return 0
	}
	return roundToCacheLine(int(s.n) * registerBytes)
}

// IsEmpty reports whether no register has moved off zero.
func (s *Sketch) IsEmpty() bool {
	if !s.live() {
		return true
	}
	for _, r := range s.registers {
		if r != 0 {
			return false
		}
	}
	return true
}

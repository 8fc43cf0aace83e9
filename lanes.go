package minhash

import (
	"fmt"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Lanes is the number of registers a sketch processes per lane group in its
// bulk loops. It only affects speed: every width produces identical registers.
type Lanes int

const (
	// LanesAuto picks the widest lane count the CPU supports (see [DetectLanes]).
	LanesAuto Lanes = 0
	// LanesScalar processes one register at a time.
	LanesScalar Lanes = 1
	// Lanes4 matches 128-bit vectors (SSE4.1, NEON).
	Lanes4 Lanes = 4
	// Lanes8 matches 256-bit vectors (AVX2).
	Lanes8 Lanes = 8
	// Lanes16 matches 512-bit vectors (AVX-512).
	Lanes16 Lanes = 16
)

// batchUnroll is the number of lane groups handled per block, so one block
// of Lanes16 covers four cache lines of registers.
const batchUnroll = 4

// maxBlock is the largest block size in registers.
const maxBlock = int(Lanes16) * batchUnroll

// String returns a short description of the lane count.
func (l Lanes) String() string {
	switch l {
	case LanesAuto:
		return "auto"
	case LanesScalar:
		return "scalar"
	case Lanes4, Lanes8, Lanes16:
		return fmt.Sprintf("%dx32", int(l))
	default:
		return fmt.Sprintf("lanes(%d)", int(l))
	}
}

func (l Lanes) valid() bool {
	switch l {
	case LanesScalar, Lanes4, Lanes8, Lanes16:
		return true
	}
	return false
}

// AllLanes returns every concrete lane count, narrowest first.
func AllLanes() []Lanes {
	return []Lanes{LanesScalar, Lanes4, Lanes8, Lanes16}
}

var (
	detectOnce sync.Once
	detected   Lanes
)

// DetectLanes returns the widest lane count supported by the running CPU.
// The probe runs once and the result is cached.
func DetectLanes() Lanes {
	detectOnce.Do(func() {
		detected = lanesFor(cpuid.CPU.Supports)
	})
	return detected
}

// lanesFor maps CPU feature support to a lane count.
func lanesFor(supports func(ids ...cpuid.FeatureID) bool) Lanes {
	switch {
	case supports(cpuid.AVX512F):
		return Lanes16
	case supports(cpuid.AVX2):
		return Lanes8
	case supports(cpuid.SSE4), supports(cpuid.ASIMD):
		return Lanes4
	default:
		return LanesScalar
	}
}

// batch runs the register loops in blocks of width*batchUnroll registers.
// Registers that do not fill a whole block are finished by the scalar loops.
type batch struct {
	width int // registers per lane group
	block int // registers per block
}

func newBatch(l Lanes) batch {
	if l == LanesScalar {
		return batch{width: 1, block: 1}
	}
	return batch{width: int(l), block: int(l) * batchUnroll}
}

// scalar reports whether the batch is the element-at-a-time path.
func (p batch) scalar() bool {
	return p.block <= 1
}

// add folds h(i) = base + i*stride into every register with a running max.
// The block values are seeded once and advanced by block*stride, which wraps
// exactly like recomputing base + i*stride.
func (p batch) add(regs []uint32, base, stride uint32) {
	if p.scalar() {
		addScalar(regs, 0, base, stride)
		return
	}

	var acc [maxBlock]uint32
	lane := acc[:p.block]
	for j := range lane {
		lane[j] = base + uint32(j)*stride
	}
	inc := uint32(p.block) * stride

	n := len(regs) - len(regs)%p.block
	for i := 0; i < n; i += p.block {
		blk := regs[i : i+p.block : i+p.block]
		for j, h := range lane {
			blk[j] = max(blk[j], h)
			lane[j] = h + inc
		}
	}

	addScalar(regs[n:], n, base, stride)
}

// countEqual returns the number of positions where a and b hold the same
// value. It always scans every register.
func (p batch) countEqual(a, b []uint32) int {
	if p.scalar() {
		return countEqualScalar(a, b)
	}

	var acc [maxBlock]uint32
	lane := acc[:p.block]

	n := len(a) - len(a)%p.block
	for i := 0; i < n; i += p.block {
		x := a[i : i+p.block : i+p.block]
		y := b[i : i+p.block : i+p.block]
		for j := range lane {
			if x[j] == y[j] {
				lane[j]++
			}
		}
	}

	count := countEqualScalar(a[n:], b[n:])
	for _, c := range lane {
		count += int(c)
	}
	return count
}

// equal reports whether a and b hold identical values, stopping at the
// first block with a difference.
func (p batch) equal(a, b []uint32) bool {
	if p.scalar() {
		return equalScalar(a, b)
	}

	n := len(a) - len(a)%p.block
	for i := 0; i < n; i += p.block {
		x := a[i : i+p.block : i+p.block]
		y := b[i : i+p.block : i+p.block]
		var diff uint32
		for j := range x {
			diff |= x[j] ^ y[j]
		}
		if diff != 0 {
			return false
		}
	}

	return equalScalar(a[n:], b[n:])
}

// union sets dst[i] = max(dst[i], src[i]) for every register.
func (p batch) union(dst, src []uint32) {
	if p.scalar() {
		unionScalar(dst, src)
		return
	}

	n := len(dst) - len(dst)%p.block
	for i := 0; i < n; i += p.block {
		d := dst[i : i+p.block : i+p.block]
		s := src[i : i+p.block : i+p.block]
		for j := range d {
			d[j] = max(d[j], s[j])
		}
	}

	unionScalar(dst[n:], src[n:])
}

// addScalar updates regs, whose first element is register number start.
func addScalar(regs []uint32, start int, base, stride uint32) {
	h := base + uint32(start)*stride
	for i := range regs {
		regs[i] = max(regs[i], h)
		h += stride
	}
}

func countEqualScalar(a, b []uint32) int {
	var count int
	for i := range a {
		if a[i] == b[i] {
			count++
		}
	}
	return count
}

func equalScalar(a, b []uint32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unionScalar(dst, src []uint32) {
	for i := range dst {
		dst[i] = max(dst[i], src[i])
	}
}

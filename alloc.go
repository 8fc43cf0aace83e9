package minhash

import "unsafe"

const (
	// cacheLineSize is the size of a CPU cache line in bytes.
	cacheLineSize = 64

	// registerBytes is the size of a single register in bytes.
	registerBytes = 4

	// registersPerLine is the number of registers that fill one cache line.
	registersPerLine = cacheLineSize / registerBytes // 16
)

// roundToCacheLine rounds size up to the next multiple of the cache line size.
func roundToCacheLine(size int) int {
	return (size + cacheLineSize - 1) &^ (cacheLineSize - 1)
}

// makeAlignedUint32Slice allocates a cache-line aligned slice of n uint32s
// backed by a buffer rounded up to a whole number of cache lines.
// Returns the raw byte slice (to keep alive for GC) and the aligned slice,
// whose capacity covers the zeroed padding registers.
func makeAlignedUint32Slice(n int) ([]byte, []uint32) {
	size := roundToCacheLine(n * registerBytes)
	// Allocate with extra space for alignment
	raw := make([]byte, size+cacheLineSize-1)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := (cacheLineSize - int(addr%cacheLineSize)) % cacheLineSize
	aligned := unsafe.Slice((*uint32)(unsafe.Pointer(&raw[offset])), size/registerBytes)
	return raw, aligned[:n]
}

package minhash

import (
	"fmt"
	"strings"

	"github.com/dgryski/go-metro"
	"github.com/zeebo/xxh3"
)

// DefaultSeed is the seed mixed into every key hash unless overridden
// with [WithSeed].
const DefaultSeed uint64 = 18014475172444421775

// Hasher selects the 64-bit hash function used to turn keys into register
// updates. Sketches built with different hashers are not comparable.
type Hasher uint8

const (
	// HasherMetro hashes keys with MetroHash64. This is the default.
	HasherMetro Hasher = iota
	// HasherXXH3 hashes keys with seeded XXH3-64.
	HasherXXH3
)

// String returns the lowercase name of the hasher.
func (h Hasher) String() string {
	switch h {
	case HasherMetro:
		return "metro"
	case HasherXXH3:
		return "xxh3"
	default:
		return fmt.Sprintf("hasher(%d)", uint8(h))
	}
}

func (h Hasher) valid() bool {
	return h == HasherMetro || h == HasherXXH3
}

// ParseHasher returns the hasher with the given name ("metro" or "xxh3").
func ParseHasher(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "metro", "metrohash", "":
		return HasherMetro, nil
	case "xxh3":
		return HasherXXH3, nil
	default:
		return 0, fmt.Errorf("%w: unknown hasher %q", ErrInvalidOption, name)
	}
}

// hashData hashes data and returns the base (lower 32 bits) and stride
// (upper 32 bits) of the per-register hash family.
func hashData(h Hasher, seed uint64, data []byte) (base, stride uint32) {
	return hashSplit(hashRaw(h, seed, data))
}

// hashString is hashData for strings. It avoids converting s to []byte.
func hashString(h Hasher, seed uint64, s string) (base, stride uint32) {
	return hashSplit(hashRawString(h, seed, s))
}

// hashRaw returns the raw 64-bit hash of data.
func hashRaw(h Hasher, seed uint64, data []byte) uint64 {
	if h == HasherXXH3 {
		return xxh3.HashSeed(data, seed)
	}
	return metro.Hash64(data, seed)
}

// hashRawString returns the raw 64-bit hash of a string.
func hashRawString(h Hasher, seed uint64, s string) uint64 {
	if h == HasherXXH3 {
		return xxh3.HashStringSeed(s, seed)
	}
	return metro.Hash64Str(s, seed)
}

// hashSplit splits a 64-bit hash into the two halves of the
// Kirsch-Mitzenmacher family h(i) = base + i*stride (mod 2^32).
func hashSplit(h uint64) (base, stride uint32) {
	return uint32(h), uint32(h >> 32)
}

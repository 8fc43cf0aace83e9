// Package minhash provides fixed-size MinHash sketches for estimating the
// Jaccard similarity of sets without keeping the sets around.
//
// A sketch is an array of n 32-bit registers. Adding a key hashes it once and
// folds a pseudo-random value into every register; two sketches built from
// sets A and B agree on a register with probability |A ∩ B| / |A ∪ B|, so the
// fraction of equal registers estimates the Jaccard similarity.
//
// # Architecture
//
// One hash per key: each key is hashed once with a seeded 64-bit hash
// (MetroHash64 by default, XXH3 optionally). The two 32-bit halves a and b of
// the result generate one value per register through the Kirsch-Mitzenmacher
// construction
//
//	h(i) = a + i*b (mod 2^32)
//
// so adding a key costs one hash plus n integer operations.
//
// Running maximum: registers keep the maximum h(i) seen, not the minimum.
// The update, the estimator and [Sketch.Merge] all use maxima, and a fresh
// sketch starts with every register at zero.
//
// Cache-line aligned registers: the register buffer starts on a 64-byte
// boundary and is padded to a whole number of cache lines, so sketches
// processed on different cores never share a line.
//
// Lane batching: the bulk loops run over blocks of registers sized for
// 128-, 256- or 512-bit vectors. [DetectLanes] probes the CPU once and
// [WithLanes] pins a width. Every width, including the scalar path, produces
// bit-for-bit identical registers, and registers that do not fill a whole
// block are handled one at a time.
//
// # Usage
//
//	a, _ := minhash.New(256)
//	b, _ := minhash.New(256)
//	for _, w := range wordsA {
//		a.AddString(w)
//	}
//	for _, w := range wordsB {
//		b.AddString(w)
//	}
//	similarity := a.Estimate(b)
//
// Use [OptimalRegisters] to size sketches for a target error. The standard
// error with n registers is sqrt(J(1-J)/n), at most 1/(2*sqrt(n)):
//
//	n     error
//	64    6.25%
//	256   3.1%
//	1024  1.6%
//
// # Compatibility
//
// Sketches can be compared, copied and merged only when they have the same
// number of registers, hasher and seed. Otherwise [Sketch.Estimate] returns 0,
// [Sketch.Equal] returns false and [Sketch.CopyTo] and [Sketch.Merge] return
// [ErrIncompatible] without modifying either sketch. The lane count does not
// affect compatibility.
//
// # Thread Safety
//
// [Sketch] is NOT thread-safe. Add, Merge (on the receiver), CopyTo (on the
// destination) and Reset write registers and must be serialized by the
// caller. Distinct sketches share no state and may be used from different
// goroutines freely.
//
// # References
//
//   - Broder, On the resemblance and containment of documents (1997)
//   - Less Hashing, Same Performance: https://www.eecs.harvard.edu/~michaelm/postscripts/rsa2008.pdf
//   - MetroHash: https://github.com/jandrewrogers/MetroHash
package minhash

package minhash

import "math"

const (
	// worstCaseVariance is J(1-J) at J = 0.5, the largest per-register
	// variance of the equality indicator.
	worstCaseVariance = 0.25

	// minMaxError is the smallest error OptimalRegisters will size for.
	minMaxError = 0.0005

	// maxRegisters is the largest cache-line multiple that fits in a uint32.
	maxRegisters = math.MaxUint32 &^ (registersPerLine - 1)
)

// OptimalRegisters returns the smallest register count whose standard error
// is at most maxError for any true similarity. The result is rounded up to a
// whole cache line of registers, since the buffer is padded to one anyway.
func OptimalRegisters(maxError float64) uint32 {
	if !(maxError >= minMaxError) { // also catches NaN
		maxError = minMaxError
	}
	if maxError > 0.5 {
		maxError = 0.5
	}

	// Var[estimate] = J(1-J)/n <= 0.25/n
	n := uint64(math.Ceil(worstCaseVariance / (maxError * maxError)))

	// Round up to a whole cache line
	n = (n + registersPerLine - 1) / registersPerLine * registersPerLine

	return uint32(min(n, maxRegisters))
}

// StandardError returns the standard error of [Sketch.Estimate] for sketches
// with n registers when the true Jaccard similarity is jaccard.
// Formula: sqrt(J(1-J)/n)
func StandardError(n uint32, jaccard float64) float64 {
	if n == 0 {
		return 1
	}
	j := min(max(jaccard, 0), 1)
	return math.Sqrt(j * (1 - j) / float64(n))
}

package minhash

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/klauspost/cpuid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxCrossCheckRegisters covers every remainder of every block size.
const maxCrossCheckRegisters = 3*maxBlock + 1

// supportsOnly returns a feature probe that reports exactly the given features.
func supportsOnly(have ...cpuid.FeatureID) func(ids ...cpuid.FeatureID) bool {
	return func(ids ...cpuid.FeatureID) bool {
		for _, id := range ids {
			if !slices.Contains(have, id) {
				return false
			}
		}
		return true
	}
}

func randomRegisters(rng *rand.Rand, n int) []uint32 {
	regs := make([]uint32, n)
	for i := range regs {
		regs[i] = rng.Uint32()
	}
	return regs
}

func TestLanesFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		have []cpuid.FeatureID
		want Lanes
	}{
		{"avx512", []cpuid.FeatureID{cpuid.AVX512F, cpuid.AVX2, cpuid.SSE4}, Lanes16},
		{"avx2", []cpuid.FeatureID{cpuid.AVX2, cpuid.SSE4}, Lanes8},
		{"sse4", []cpuid.FeatureID{cpuid.SSE4}, Lanes4},
		{"neon", []cpuid.FeatureID{cpuid.ASIMD}, Lanes4},
		{"none", nil, LanesScalar},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, lanesFor(supportsOnly(tt.have...)), "%s", tt.name)
	}
}

func TestDetectLanes(t *testing.T) {
	t.Parallel()

	l := DetectLanes()

	assert.True(t, l.valid())
	assert.Equal(t, l, DetectLanes())
	t.Logf("detected lanes: %s", l)
}

func TestLanesString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "auto", LanesAuto.String())
	assert.Equal(t, "scalar", LanesScalar.String())
	assert.Equal(t, "8x32", Lanes8.String())
	assert.Equal(t, "lanes(3)", Lanes(3).String())
}

func TestNewBatch(t *testing.T) {
	t.Parallel()

	assert.True(t, newBatch(LanesScalar).scalar())
	assert.Equal(t, batch{width: 4, block: 16}, newBatch(Lanes4))
	assert.Equal(t, batch{width: 16, block: maxBlock}, newBatch(Lanes16))
}

// --- Cross-check Tests ---.

func TestBatchAddMatchesScalar(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))

	for n := 1; n <= maxCrossCheckRegisters; n++ {
		start := randomRegisters(rng, n)
		base, stride := rng.Uint32(), rng.Uint32()

		want := slices.Clone(start)
		addScalar(want, 0, base, stride)

		for _, l := range AllLanes() {
			got := slices.Clone(start)
			newBatch(l).add(got, base, stride)
			require.Equalf(t, want, got, "lanes %s n=%d", l, n)
		}
	}
}

func TestBatchAddWrapsLikeFormula(t *testing.T) {
	t.Parallel()

	const n = 1000
	base, stride := uint32(0xfffffff0), uint32(0x9e3779b9)

	for _, l := range AllLanes() {
		regs := make([]uint32, n)
		newBatch(l).add(regs, base, stride)

		for i, r := range regs {
			require.Equalf(t, base+uint32(i)*stride, r, "lanes %s register %d", l, i)
		}
	}
}

func TestBatchCountEqualMatchesScalar(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 4))

	for n := 1; n <= maxCrossCheckRegisters; n++ {
		a := randomRegisters(rng, n)
		b := slices.Clone(a)
		for i := range b {
			if rng.IntN(3) == 0 {
				b[i]++
			}
		}

		want := countEqualScalar(a, b)
		for _, l := range AllLanes() {
			require.Equalf(t, want, newBatch(l).countEqual(a, b), "lanes %s n=%d", l, n)
		}
	}
}

func TestBatchEqualMatchesScalar(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(5, 6))

	for n := 1; n <= maxCrossCheckRegisters; n++ {
		a := randomRegisters(rng, n)
		same := slices.Clone(a)
		diff := slices.Clone(a)
		diff[rng.IntN(n)] ^= 1 << rng.IntN(32)

		for _, l := range AllLanes() {
			p := newBatch(l)
			require.Truef(t, p.equal(a, same), "lanes %s n=%d", l, n)
			require.Falsef(t, p.equal(a, diff), "lanes %s n=%d", l, n)
		}
	}
}

func TestBatchEqualDetectsTailDifference(t *testing.T) {
	t.Parallel()

	const n = maxBlock + 3
	a := make([]uint32, n)
	b := make([]uint32, n)
	b[n-1] = 1

	for _, l := range AllLanes() {
		assert.Falsef(t, newBatch(l).equal(a, b), "lanes %s", l)
	}
}

func TestBatchUnionMatchesScalar(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 8))

	for n := 1; n <= maxCrossCheckRegisters; n++ {
		dst := randomRegisters(rng, n)
		src := randomRegisters(rng, n)

		want := slices.Clone(dst)
		unionScalar(want, src)

		for _, l := range AllLanes() {
			got := slices.Clone(dst)
			newBatch(l).union(got, src)
			require.Equalf(t, want, got, "lanes %s n=%d", l, n)
		}
	}
}

func TestSketchLanesAgree(t *testing.T) {
	t.Parallel()

	for _, n := range []uint32{1, 15, 63, 64, 65, testOddRegisters, testRegisters} {
		ref := mustNew(t, n, WithLanes(LanesScalar))
		other := mustNew(t, n, WithLanes(LanesScalar))
		addRange(ref, 0, 200)
		addRange(other, 100, 300)

		for _, l := range AllLanes() {
			s := mustNew(t, n, WithLanes(l))
			o := mustNew(t, n, WithLanes(l))
			addRange(s, 0, 200)
			addRange(o, 100, 300)

			require.Equalf(t, ref.Registers(), s.Registers(), "lanes %s n=%d", l, n)
			require.InDeltaf(t, ref.Estimate(other), s.Estimate(o), 0, "lanes %s n=%d", l, n)
			require.Equal(t, ref.Equal(other), s.Equal(o))
		}
	}
}

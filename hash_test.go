package minhash

import (
	"testing"

	"github.com/dgryski/go-metro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"
)

func TestHashSplit(t *testing.T) {
	t.Parallel()

	base, stride := hashSplit(0x0123456789abcdef)

	assert.Equal(t, uint32(0x89abcdef), base)
	assert.Equal(t, uint32(0x01234567), stride)
}

func TestHashRaw(t *testing.T) {
	t.Parallel()

	key := []byte("hello world")

	assert.Equal(t, metro.Hash64(key, DefaultSeed), hashRaw(HasherMetro, DefaultSeed, key))
	assert.Equal(t, xxh3.HashSeed(key, DefaultSeed), hashRaw(HasherXXH3, DefaultSeed, key))
	assert.Equal(t, hashRaw(HasherMetro, 1, key), hashRawString(HasherMetro, 1, string(key)))
	assert.Equal(t, hashRaw(HasherXXH3, 1, key), hashRawString(HasherXXH3, 1, string(key)))
	assert.NotEqual(t, hashRaw(HasherMetro, 1, key), hashRaw(HasherMetro, 2, key))
}

func TestHashDataDeterministic(t *testing.T) {
	t.Parallel()

	a1, b1 := hashData(HasherMetro, DefaultSeed, []byte("key"))
	a2, b2 := hashString(HasherMetro, DefaultSeed, "key")

	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestParseHasher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want Hasher
	}{
		{"metro", HasherMetro},
		{"MetroHash", HasherMetro},
		{"", HasherMetro},
		{" xxh3 ", HasherXXH3},
	}

	for _, tt := range tests {
		got, err := ParseHasher(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, mustParse(t, got.String()))
	}

	_, err := ParseHasher("md5")
	require.ErrorIs(t, err, ErrInvalidOption)
}

func mustParse(t *testing.T, name string) Hasher {
	t.Helper()

	h, err := ParseHasher(name)
	require.NoError(t, err)
	return h
}

func TestHasherString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "metro", HasherMetro.String())
	assert.Equal(t, "xxh3", HasherXXH3.String())
	assert.Equal(t, "hasher(9)", Hasher(9).String())
}

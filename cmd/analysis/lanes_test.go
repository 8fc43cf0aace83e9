package main

import (
	"testing"

	"github.com/jcalabro/minhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLaneCheck(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Registers = []int{16, 100}
	cfg.LaneKeys = 50

	report, err := runLaneCheck(cfg, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, minhash.DetectLanes().String(), report.Detected)

	// Two register counts per configured count, one check per lane width
	require.Len(t, report.Checks, 2*len(cfg.Registers)*len(minhash.AllLanes()))
	for _, c := range report.Checks {
		assert.Truef(t, c.Match, "%s at %d registers", c.Lanes, c.Registers)
		assert.Equal(t, cfg.LaneKeys, c.Keys)
	}
}

func TestCheckLanes_XXH3(t *testing.T) {
	t.Parallel()

	opts := []minhash.Option{minhash.WithHasher(minhash.HasherXXH3)}

	checks, err := checkLanes(67, 20, opts)

	require.NoError(t, err)
	require.Len(t, checks, len(minhash.AllLanes()))
	for _, c := range checks {
		assert.True(t, c.Match, c.Lanes)
		assert.Equal(t, uint32(67), c.Registers)
	}
}

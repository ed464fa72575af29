package vocabulary

import (
	"testing"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVote(t *testing.T) {
	v := New()
	cfg := linearConfig()
	// Words 0 and 1 come from object 7, word 2 from objects 8 and 9.
	_, err := v.AddWords(cfg, floats(t, []float32{0, 0}, []float32{100, 0}), 7, false)
	require.NoError(t, err)
	_, err = v.AddWords(cfg, floats(t, []float32{0, 100}), 8, false)
	require.NoError(t, err)
	_, err = v.AddWords(cfg, floats(t, []float32{0, 101}), 9, true)
	require.NoError(t, err)
	require.Equal(t, []int{8, 9}, v.DistinctObjects(2))
	require.NoError(t, v.Update(cfg))

	scene := floats(t,
		[]float32{0, 1},   // word 0
		[]float32{99, 0},  // word 1
		[]float32{1, 100}, // word 2
		[]float32{50, 50}, // ambiguous, no vote
	)
	res, err := v.Search(cfg, scene, 2)
	require.NoError(t, err)

	votes := v.Vote(res, cfg.NNDRRatio)
	assert.Equal(t, []core.Vote{{ObjectID: 7, Votes: 2}, {ObjectID: 8, Votes: 1}, {ObjectID: 9, Votes: 1}}, votes)
}

func TestVoteSkipsShortResults(t *testing.T) {
	v := New()
	assert.Empty(t, v.Vote([][]core.Neighbor{{{ID: 0, Distance: 0}}}, 0.6))
}

func TestDistinctObjectsHandlesNegativeIDs(t *testing.T) {
	v := New()
	cfg := DefaultConfig()
	_, err := v.AddWords(cfg, floats(t, []float32{0, 0}, []float32{9, 9}), 3, false)
	require.NoError(t, err)
	for _, obj := range []int{-4, 3, -4} {
		_, err = v.AddWords(cfg, floats(t, []float32{0, 0.1}), obj, true)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{3, -4, 3, -4}, v.Objects(0))
	assert.Equal(t, []int{-4, 3}, v.DistinctObjects(0))
}

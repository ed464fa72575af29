package vocabulary

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/patrikhermansson/visualwords/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	v := New()
	cfg := DefaultConfig()
	cfg.IndexParams.Seed = 5
	_, err := v.AddWords(cfg, spread(t, 6), 1, false)
	require.NoError(t, err)
	require.NoError(t, v.Update(cfg))
	_, err = v.AddWords(cfg, floats(t, []float32{0, 1}, []float32{5000, 0}), 2, true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, v.Save(&buf))

	loaded := New()
	require.NoError(t, loaded.Load(&buf))
	assert.Equal(t, v.TotalWords(), loaded.TotalWords())
	assert.Equal(t, v.CommittedRows(), loaded.CommittedRows())
	assert.Equal(t, v.PendingRows(), loaded.PendingRows())
	assert.Equal(t, v.WordToObjects(), loaded.WordToObjects())
	assert.Equal(t, v.DistinctObjects(0), loaded.DistinctObjects(0))

	stats, ok := loaded.IndexStats()
	require.True(t, ok)
	assert.Equal(t, 6, stats.Count)

	require.NoError(t, v.Update(cfg))
	require.NoError(t, loaded.Update(cfg))
	queries := spread(t, 6)
	want, err := v.Search(cfg, queries, 1)
	require.NoError(t, err)
	got, err := loaded.Search(cfg, queries, 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoadEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Save(&buf))

	loaded := New()
	require.NoError(t, loaded.Load(&buf))
	assert.Zero(t, loaded.TotalWords())
	_, ok := loaded.IndexStats()
	assert.False(t, ok)
}

func TestLoadRejectsGarbage(t *testing.T) {
	v := New()
	_, err := v.AddWords(DefaultConfig(), binaries(t, []byte{1}), 1, false)
	require.NoError(t, err)

	assert.Error(t, v.Load(bytes.NewReader([]byte("not a vocabulary"))))
	assert.Equal(t, 1, v.TotalWords(), "failed load must keep the previous state")
}

func TestSnapshotRestoreChecksInvariants(t *testing.T) {
	pending, err := core.NewFloatMatrix([][]float32{{1, 2}})
	require.NoError(t, err)

	snap := snapshot{Version: snapshotVersion, Pending: pending, PendingWordIDs: []int{0, 1}}
	_, err = snap.restore()
	assert.Error(t, err)

	snap = snapshot{Version: snapshotVersion, Pending: pending, PendingWordIDs: []int{0}, WordToObjects: map[int][]int{3: {1}}}
	_, err = snap.restore()
	assert.Error(t, err)

	snap = snapshot{Version: snapshotVersion + 1}
	_, err = snap.restore()
	assert.Error(t, err)
}

// rawMatrix gob-encodes arbitrary matrix fields, including inconsistent ones.
type rawMatrix struct {
	Type core.ElemType
	Cols int
	Rows int
	F32  []float32
	U8   []byte
}

func (m rawMatrix) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(struct {
		Type       core.ElemType
		Cols, Rows int
		F32        []float32
		U8         []byte
	}{m.Type, m.Cols, m.Rows, m.F32, m.U8})
	return buf.Bytes(), err
}

func TestLoadRejectsMislabeledMatrix(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(enc).Encode(struct {
		Version   int
		Committed rawMatrix
		Indexed   bool
		Built     buildKey
	}{
		Version:   snapshotVersion,
		Committed: rawMatrix{Type: core.Uint8, Cols: 2, Rows: 2, F32: []float32{1, 2, 3, 4}},
		Indexed:   true,
		Built:     buildKey{Metric: core.MetricHamming, Params: core.DefaultIndexParams()},
	}))
	require.NoError(t, enc.Close())

	v := New()
	assert.NotPanics(t, func() {
		assert.Error(t, v.Load(&buf))
	})
	assert.Zero(t, v.TotalWords())
}

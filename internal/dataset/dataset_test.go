package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFloat(t *testing.T) {
	path := writeFile(t, "object.csv", "1,2,3\n4.5, 5 ,-6\n")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, core.Float32, m.Type())
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, []float32{4.5, 5, -6}, m.Row(1).Float)
}

func TestLoadBinary(t *testing.T) {
	path := writeFile(t, "object.hex", "00ff\n\n0f10\n")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, core.Uint8, m.Type())
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, []byte{0x0f, 0x10}, m.Row(1).Binary)
}

func TestLoadRejectsRaggedRows(t *testing.T) {
	_, err := LoadFloat(writeFile(t, "ragged.csv", "1,2\n3\n"))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = LoadBinary(writeFile(t, "ragged.hex", "0011\n22\n"))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFloat(writeFile(t, "bad.csv", "1,x\n"))
	assert.ErrorContains(t, err, "bad.csv")

	_, err = LoadBinary(writeFile(t, "bad.hex", "zz\n"))
	assert.ErrorContains(t, err, "bad.hex")

	_, err = Load(writeFile(t, "object.txt", "1\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEmptyFile(t *testing.T) {
	m, err := Load(writeFile(t, "empty.csv", ""))
	require.NoError(t, err)
	assert.True(t, m.Empty())
}

package core

import (
	"errors"
	"testing"
)

func TestNewFloatMatrix(t *testing.T) {
	m, err := NewFloatMatrix([][]float32{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatalf("NewFloatMatrix failed: %v", err)
	}
	if m.Rows() != 2 || m.Cols() != 3 || m.Type() != Float32 {
		t.Fatalf("unexpected shape %dx%d %s", m.Rows(), m.Cols(), m.Type())
	}
	if got := m.Row(1).Float; got[0] != 4 || got[2] != 6 {
		t.Errorf("Row(1) = %v; want [4 5 6]", got)
	}

	if _, err := NewFloatMatrix([][]float32{{1, 2}, {3}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for ragged rows, got %v", err)
	}
}

func TestMatrixAppend(t *testing.T) {
	var m Matrix
	if !m.Empty() {
		t.Fatalf("zero matrix should be empty")
	}
	a, _ := NewBinaryMatrix([][]byte{{1, 2}, {3, 4}})
	if err := m.Append(a); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := m.AppendRow(Row{Binary: []byte{5, 6}}); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}
	if m.Rows() != 3 || m.Type() != Uint8 {
		t.Fatalf("expected 3 uint8 rows, got %d %s", m.Rows(), m.Type())
	}
	if got := m.Row(2).Binary; got[0] != 5 || got[1] != 6 {
		t.Errorf("Row(2) = %v; want [5 6]", got)
	}

	f, _ := NewFloatMatrix([][]float32{{1, 2}})
	if err := m.Append(f); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	wide, _ := NewBinaryMatrix([][]byte{{1, 2, 3}})
	if err := m.Append(wide); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if m.Rows() != 3 {
		t.Errorf("failed appends must not change the matrix, rows = %d", m.Rows())
	}
}

func TestMatrixCloneIsIndependent(t *testing.T) {
	m, _ := NewFloatMatrix([][]float32{{1, 2}})
	c := m.Clone()
	c.Row(0).Float[0] = 9
	if m.Row(0).Float[0] != 1 {
		t.Errorf("clone shares storage with original")
	}
}

func TestMatrixGobRoundTrip(t *testing.T) {
	m, _ := NewBinaryMatrix([][]byte{{1, 2}, {3, 4}})
	data, err := m.GobEncode()
	if err != nil {
		t.Fatalf("GobEncode failed: %v", err)
	}
	var out Matrix
	if err := out.GobDecode(data); err != nil {
		t.Fatalf("GobDecode failed: %v", err)
	}
	if out.Rows() != 2 || out.Cols() != 2 || out.Type() != Uint8 || out.Row(1).Binary[1] != 4 {
		t.Errorf("decoded matrix differs: %dx%d %s", out.Rows(), out.Cols(), out.Type())
	}
}

func TestMatrixGobDecodeRejectsCorruptState(t *testing.T) {
	tests := []struct {
		name  string
		state matrixState
	}{
		{"byte type with float payload", matrixState{Type: Uint8, Cols: 2, Rows: 2, F32: []float32{1, 2, 3, 4}}},
		{"float type with byte payload", matrixState{Type: Float32, Cols: 2, Rows: 1, U8: []byte{1, 2}}},
		{"negative rows", matrixState{Type: Float32, Cols: -2, Rows: -1, F32: []float32{1, 2}}},
		{"unknown type", matrixState{Type: ElemType(7), Cols: 1, Rows: 1, U8: []byte{1}}},
		{"short payload", matrixState{Type: Uint8, Cols: 2, Rows: 2, U8: []byte{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := encodeGob(tt.state)
			if err != nil {
				t.Fatalf("encodeGob failed: %v", err)
			}
			var out Matrix
			if err := out.GobDecode(data); err == nil {
				t.Errorf("expected an error for %+v", tt.state)
			}
		})
	}
}

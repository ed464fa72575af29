package core

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned when descriptors of different element types are mixed.
var ErrTypeMismatch = errors.New("descriptor element type mismatch")

// ErrDimensionMismatch is returned when descriptors of different lengths are mixed.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// ElemType is the element type of a descriptor matrix.
type ElemType int

const (
	// Float32 descriptors (SIFT, SURF, ...).
	Float32 ElemType = iota
	// Uint8 descriptors hold packed bits (ORB, BRIEF, BRISK, ...).
	Uint8
)

func (t ElemType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Uint8:
		return "uint8"
	default:
		return fmt.Sprintf("ElemType(%d)", int(t))
	}
}

// Row is a view of a single descriptor. Exactly one of Float and Binary is set.
type Row struct {
	Float  []float32
	Binary []byte
}

// Len returns the number of elements in the row.
func (r Row) Len() int {
	if r.Binary != nil {
		return len(r.Binary)
	}
	return len(r.Float)
}

// Matrix is a row-major set of descriptors sharing one element type and length.
// The zero value is an empty matrix.
type Matrix struct {
	typ  ElemType
	cols int
	rows int
	f32  []float32
	u8   []byte
}

// NewFloatMatrix builds a Float32 matrix from rows. All rows must have the same length.
func NewFloatMatrix(rows [][]float32) (*Matrix, error) {
	m := &Matrix{typ: Float32}
	for i, r := range rows {
		if i == 0 {
			m.cols = len(r)
			m.f32 = make([]float32, 0, len(rows)*len(r))
		}
		if len(r) != m.cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(r), m.cols, ErrDimensionMismatch)
		}
		m.f32 = append(m.f32, r...)
		m.rows++
	}
	return m, nil
}

// NewBinaryMatrix builds a Uint8 matrix from rows. All rows must have the same length.
func NewBinaryMatrix(rows [][]byte) (*Matrix, error) {
	m := &Matrix{typ: Uint8}
	for i, r := range rows {
		if i == 0 {
			m.cols = len(r)
			m.u8 = make([]byte, 0, len(rows)*len(r))
		}
		if len(r) != m.cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(r), m.cols, ErrDimensionMismatch)
		}
		m.u8 = append(m.u8, r...)
		m.rows++
	}
	return m, nil
}

// Rows returns the number of descriptors.
func (m *Matrix) Rows() int {
	if m == nil {
		return 0
	}
	return m.rows
}

// Cols returns the descriptor length.
func (m *Matrix) Cols() int {
	if m == nil {
		return 0
	}
	return m.cols
}

// Type returns the element type.
func (m *Matrix) Type() ElemType { return m.typ }

// Empty reports whether the matrix has no rows.
func (m *Matrix) Empty() bool { return m.Rows() == 0 }

// Row returns a view of row i. The view aliases the matrix storage.
func (m *Matrix) Row(i int) Row {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("row %d out of range [0,%d)", i, m.rows))
	}
	lo, hi := i*m.cols, (i+1)*m.cols
	if m.typ == Uint8 {
		return Row{Binary: m.u8[lo:hi:hi]}
	}
	return Row{Float: m.f32[lo:hi:hi]}
}

// Compatible returns an error if o cannot be mixed with m.
// An empty matrix is compatible with anything.
func (m *Matrix) Compatible(o *Matrix) error {
	if m.Empty() || o.Empty() {
		return nil
	}
	if m.typ != o.typ {
		return fmt.Errorf("%s vs %s: %w", m.typ, o.typ, ErrTypeMismatch)
	}
	if m.cols != o.cols {
		return fmt.Errorf("%d vs %d columns: %w", m.cols, o.cols, ErrDimensionMismatch)
	}
	return nil
}

// Append adds all rows of o to m.
func (m *Matrix) Append(o *Matrix) error {
	if o.Empty() {
		return nil
	}
	if err := m.Compatible(o); err != nil {
		return err
	}
	if m.Empty() {
		m.typ, m.cols = o.typ, o.cols
	}
	m.f32 = append(m.f32, o.f32...)
	m.u8 = append(m.u8, o.u8...)
	m.rows += o.rows
	return nil
}

// AppendRow adds a single descriptor to m.
func (m *Matrix) AppendRow(r Row) error {
	o := &Matrix{cols: r.Len(), rows: 1}
	if r.Binary != nil {
		o.typ, o.u8 = Uint8, r.Binary
	} else {
		o.typ, o.f32 = Float32, r.Float
	}
	return m.Append(o)
}

// View returns a matrix sharing storage with m whose rows stay fixed when m
// is appended to later.
func (m *Matrix) View() *Matrix {
	v := *m
	return &v
}

// Clone returns a deep copy of m that shares no storage with it.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{typ: m.typ, cols: m.cols, rows: m.rows}
	if m.f32 != nil {
		c.f32 = append([]float32(nil), m.f32...)
	}
	if m.u8 != nil {
		c.u8 = append([]byte(nil), m.u8...)
	}
	return c
}

// matrixState is the exported form of Matrix used for gob encoding.
type matrixState struct {
	Type ElemType
	Cols int
	Rows int
	F32  []float32
	U8   []byte
}

// GobEncode implements gob.GobEncoder.
func (m *Matrix) GobEncode() ([]byte, error) {
	return encodeGob(matrixState{Type: m.typ, Cols: m.cols, Rows: m.rows, F32: m.f32, U8: m.u8})
}

// GobDecode implements gob.GobDecoder.
func (m *Matrix) GobDecode(data []byte) error {
	var s matrixState
	if err := decodeGob(data, &s); err != nil {
		return err
	}
	if s.Rows < 0 || s.Cols < 0 {
		return fmt.Errorf("corrupt matrix: %d rows x %d cols", s.Rows, s.Cols)
	}
	switch {
	case s.Type == Float32 && len(s.U8) != 0, s.Type == Uint8 && len(s.F32) != 0:
		return fmt.Errorf("corrupt matrix: %s matrix carries %d float and %d byte values", s.Type, len(s.F32), len(s.U8))
	case s.Type != Float32 && s.Type != Uint8:
		return fmt.Errorf("corrupt matrix: unknown element type %s", s.Type)
	}
	if s.Rows*s.Cols != len(s.F32)+len(s.U8) {
		return fmt.Errorf("corrupt matrix: %d rows x %d cols, %d values", s.Rows, s.Cols, len(s.F32)+len(s.U8))
	}
	m.typ, m.cols, m.rows, m.f32, m.u8 = s.Type, s.Cols, s.Rows, s.F32, s.U8
	return nil
}

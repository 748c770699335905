// Package tensor provides the fixed-shape vector and matrix algebra used by the
// transformer forward pass.
//
// Matrices are stored as a flat row-major slice with explicit row and column
// counts, so every row has the same length by construction. Rows returned by
// Row share memory with the matrix.
package tensor

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrShapeMismatch is returned (wrapped) by every operation whose operands have
// incompatible dimensions.
var ErrShapeMismatch = errors.New("shape mismatch")

// Vector is an ordered sequence of float32 values.
type Vector []float32

// NewVector creates a zero vector of the given length.
func NewVector(size int) Vector {
	return make(Vector, size)
}

// Filled creates a vector of the given length with every element set to value.
func Filled(size int, value float32) Vector {
	v := make(Vector, size)
	for i := range v {
		v[i] = value
	}
	return v
}

// Clone returns a copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Matrix is a dense row-major matrix of float32 values.
//
// A Matrix represents either a weight matrix (rows = input dim, cols = output
// dim) or a sequence of per-position vectors (rows = positions, cols = features).
type Matrix struct {
	Rows int
	Cols int
	Data []float32 // len(Data) == Rows*Cols
}

// NewMatrix creates a zero matrix with the given dimensions.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("invalid matrix dimensions (%d, %d)", rows, cols))
	}
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]float32, rows*cols),
	}
}

// FromSlice creates a matrix from existing row-major data. The data is copied.
// Returns an error if the data size doesn't match the shape.
func FromSlice(data []float32, rows, cols int) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid dimension in shape (%d, %d)", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("data size %d does not match shape (%d, %d) (expected %d elements): %w",
			len(data), rows, cols, rows*cols, ErrShapeMismatch)
	}

	m := NewMatrix(rows, cols)
	copy(m.Data, data)
	return m, nil
}

// FromRows creates a matrix from a slice of rows. All rows must have the same length.
func FromRows(rows []Vector) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}

	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has length %d, expected %d: %w", i, len(row), cols, ErrShapeMismatch)
		}
		copy(m.Data[i*cols:(i+1)*cols], row)
	}
	return m, nil
}

// Identity returns an n×n identity matrix.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = 1
	}
	return m
}

// Row returns row i as a vector sharing the matrix memory.
func (m *Matrix) Row(i int) Vector {
	if i < 0 || i >= m.Rows {
		panic(fmt.Sprintf("row index %d out of bounds [0, %d)", i, m.Rows))
	}
	return Vector(m.Data[i*m.Cols : (i+1)*m.Cols : (i+1)*m.Cols])
}

// At returns the element at (i, j).
func (m *Matrix) At(i, j int) float32 {
	m.checkIndex(i, j)
	return m.Data[i*m.Cols+j]
}

// Set sets the element at (i, j).
func (m *Matrix) Set(i, j int, value float32) {
	m.checkIndex(i, j)
	m.Data[i*m.Cols+j] = value
}

func (m *Matrix) checkIndex(i, j int) {
	if i < 0 || i >= m.Rows || j < 0 || j >= m.Cols {
		panic(fmt.Sprintf("index (%d, %d) out of bounds for matrix %s", i, j, m.ShapeString()))
	}
}

// SetRow copies v into row i.
func (m *Matrix) SetRow(i int, v Vector) error {
	if i < 0 || i >= m.Rows {
		return fmt.Errorf("row index %d out of bounds [0, %d)", i, m.Rows)
	}
	if len(v) != m.Cols {
		return fmt.Errorf("row length %d does not match matrix columns %d: %w", len(v), m.Cols, ErrShapeMismatch)
	}
	copy(m.Data[i*m.Cols:(i+1)*m.Cols], v)
	return nil
}

// ColumnBlock copies columns [start, end) into a new Rows×(end-start) matrix.
func (m *Matrix) ColumnBlock(start, end int) (*Matrix, error) {
	if start < 0 || end > m.Cols || start >= end {
		return nil, fmt.Errorf("invalid column range [%d, %d) for matrix with %d columns", start, end, m.Cols)
	}

	width := end - start
	block := NewMatrix(m.Rows, width)
	for i := 0; i < m.Rows; i++ {
		copy(block.Data[i*width:(i+1)*width], m.Data[i*m.Cols+start:i*m.Cols+end])
	}
	return block, nil
}

// SetColumnBlock writes block into columns [start, start+block.Cols). It is the
// inverse of ColumnBlock and touches no other columns.
func (m *Matrix) SetColumnBlock(start int, block *Matrix) error {
	if block.Rows != m.Rows {
		return fmt.Errorf("block has %d rows, matrix has %d: %w", block.Rows, m.Rows, ErrShapeMismatch)
	}
	if start < 0 || start+block.Cols > m.Cols {
		return fmt.Errorf("block columns [%d, %d) exceed matrix columns %d", start, start+block.Cols, m.Cols)
	}

	for i := 0; i < m.Rows; i++ {
		copy(m.Data[i*m.Cols+start:i*m.Cols+start+block.Cols], block.Data[i*block.Cols:(i+1)*block.Cols])
	}
	return nil
}

// Clone creates a deep copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	copy(out.Data, m.Data)
	return out
}

// ShapeEquals checks if two matrices have the same shape.
func (m *Matrix) ShapeEquals(other *Matrix) bool {
	return m.Rows == other.Rows && m.Cols == other.Cols
}

// Equals checks if two matrices have the same shape and approximately equal values.
func (m *Matrix) Equals(other *Matrix, tolerance float32) bool {
	if !m.ShapeEquals(other) {
		return false
	}
	for i := range m.Data {
		if math.Abs(float64(m.Data[i]-other.Data[i])) > float64(tolerance) {
			return false
		}
	}
	return true
}

// ShapeString returns a string representation of the shape.
func (m *Matrix) ShapeString() string {
	return fmt.Sprintf("(%d, %d)", m.Rows, m.Cols)
}

// String returns a truncated string representation of the matrix.
func (m *Matrix) String() string {
	var sb strings.Builder
	sb.WriteString("Matrix")
	sb.WriteString(m.ShapeString())
	sb.WriteString(": [")
	for i := 0; i < m.Rows && i < 3; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(formatRow(m.Row(i)))
	}
	if m.Rows > 3 {
		sb.WriteString(", ...")
	}
	sb.WriteString("]")
	return sb.String()
}

func formatRow(v Vector) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < len(v) && i < 6; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%g", v[i])
	}
	if len(v) > 6 {
		sb.WriteString(", ...")
	}
	sb.WriteString("]")
	return sb.String()
}

package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// DefaultEpsilon is the variance offset used by LayerNorm.
const DefaultEpsilon float32 = 1e-5

func (v Vector) blas() blas32.Vector {
	return blas32.Vector{N: len(v), Data: v, Inc: 1}
}

func (m *Matrix) blas() blas32.General {
	return blas32.General{Rows: m.Rows, Cols: m.Cols, Data: m.Data, Stride: m.Cols}
}

// Dot returns the sum of the elementwise products of a and b.
func Dot(a, b Vector) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("shape mismatch in Dot: lengths %d and %d: %w", len(a), len(b), ErrShapeMismatch)
	}
	if len(a) == 0 {
		return 0, nil
	}
	return blas32.Dot(a.blas(), b.blas()), nil
}

// VecMat treats v as a row vector and computes v · m.
// Output length is m.Cols.
func VecMat(v Vector, m *Matrix) (Vector, error) {
	if len(v) != m.Rows {
		return nil, fmt.Errorf("shape mismatch in VecMat: vector length %d, matrix %s: %w",
			len(v), m.ShapeString(), ErrShapeMismatch)
	}

	out := NewVector(m.Cols)
	if m.Rows == 0 || m.Cols == 0 {
		return out, nil
	}
	// v·M == Mᵀ·v
	blas32.Gemv(blas.Trans, 1, m.blas(), v.blas(), 0, out.blas())
	return out, nil
}

// MatVec treats v as a column vector and computes m · v.
// Output length is m.Rows.
func MatVec(m *Matrix, v Vector) (Vector, error) {
	if m.Cols != len(v) {
		return nil, fmt.Errorf("shape mismatch in MatVec: matrix %s, vector length %d: %w",
			m.ShapeString(), len(v), ErrShapeMismatch)
	}

	out := NewVector(m.Rows)
	if m.Rows == 0 || m.Cols == 0 {
		return out, nil
	}
	blas32.Gemv(blas.NoTrans, 1, m.blas(), v.blas(), 0, out.blas())
	return out, nil
}

// MatMul computes a · b. For a sequence matrix a and weight matrix b this
// projects every position independently: row i of the result equals
// VecMat(a.Row(i), b).
func MatMul(a, b *Matrix) (*Matrix, error) {
	if a.Cols != b.Rows {
		return nil, fmt.Errorf("shape mismatch in MatMul: %s x %s: %w",
			a.ShapeString(), b.ShapeString(), ErrShapeMismatch)
	}

	out := NewMatrix(a.Rows, b.Cols)
	if a.Rows == 0 || a.Cols == 0 || b.Cols == 0 {
		return out, nil
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, a.blas(), b.blas(), 0, out.blas())
	return out, nil
}

// Add performs element-wise addition.
func Add(a, b Vector) (Vector, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("shape mismatch in Add: lengths %d and %d: %w", len(a), len(b), ErrShapeMismatch)
	}

	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out, nil
}

// AddMatrix performs element-wise addition of two matrices of the same shape.
func AddMatrix(a, b *Matrix) (*Matrix, error) {
	if !a.ShapeEquals(b) {
		return nil, fmt.Errorf("shape mismatch in AddMatrix: %s vs %s: %w",
			a.ShapeString(), b.ShapeString(), ErrShapeMismatch)
	}

	out := NewMatrix(a.Rows, a.Cols)
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out, nil
}

// Softmax converts scores into a probability distribution.
//
// The maximum is subtracted before exponentiating, so the largest term is
// exp(0) = 1 and the normalizer is never zero for finite input.
func Softmax(scores Vector) Vector {
	if len(scores) == 0 {
		return Vector{}
	}

	maxVal := float32(math.Inf(-1))
	for _, s := range scores {
		if s > maxVal {
			maxVal = s
		}
	}

	out := make(Vector, len(scores))
	expSum := float32(0)
	for i, s := range scores {
		out[i] = float32(math.Exp(float64(s - maxVal)))
		expSum += out[i]
	}

	for i := range out {
		out[i] /= expSum
	}
	return out
}

// LayerNorm normalizes input to zero mean and unit variance, then applies
// gamma (scale) and beta (shift) element-wise:
//
//	out[i] = gamma[i] * (x[i] - mean) / sqrt(var + eps) + beta[i]
//
// The variance is the population variance (divided by N).
func LayerNorm(input, gamma, beta Vector, eps float32) (Vector, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("cannot apply LayerNorm to an empty vector")
	}
	if len(gamma) != len(input) || len(beta) != len(input) {
		return nil, fmt.Errorf("shape mismatch in LayerNorm: input %d, gamma %d, beta %d: %w",
			len(input), len(gamma), len(beta), ErrShapeMismatch)
	}

	n := float32(len(input))

	mean := float32(0)
	for _, x := range input {
		mean += x
	}
	mean /= n

	variance := float32(0)
	for _, x := range input {
		diff := x - mean
		variance += diff * diff
	}
	variance /= n

	invStd := float32(1.0 / math.Sqrt(float64(variance+eps)))

	out := make(Vector, len(input))
	for i, x := range input {
		out[i] = gamma[i]*(x-mean)*invStd + beta[i]
	}
	return out, nil
}

// Argmax returns the index of the largest element. Ties resolve to the lowest
// index. Returns -1 for an empty vector.
func Argmax(v Vector) int {
	if len(v) == 0 {
		return -1
	}

	maxIdx := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

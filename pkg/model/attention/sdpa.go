// Package attention implements multi-head scaled dot-product attention and the
// encoder/decoder layers built on it.
//
// This package provides:
//   - ScaledDotProductAttention: single-head attention with optional causal mask
//   - MultiHeadAttention: self-attention (Q, K, V from one input) and
//     cross-attention (Q from one input, K and V from another)
//   - EncoderLayer and DecoderLayer: attention + feed-forward sublayers with
//     residual add and layer normalization
package attention

import (
	"fmt"
	"math"

	"gotransformer/pkg/tensor"
)

// MaskValue replaces the scores of future positions when the causal mask is on.
// exp(MaskValue - max) underflows to exactly 0 in float32.
const MaskValue float32 = -1e9

// ScaledDotProductAttention computes attention for a single head.
//
// Input shapes:
//   - q: (query_len, head_dim)
//   - k: (kv_len, head_dim)
//   - v: (kv_len, head_dim)
//
// Output shape: (query_len, head_dim)
//
// Steps:
//  1. scores[i][j] = q[i]·k[j] / sqrt(head_dim)
//  2. If mask: scores[i][j] = MaskValue for j > i
//  3. Softmax over each row
//  4. out[i] = Σ_j weights[i][j] * v[j]
//
// With mask set, row i of the output depends only on positions 0..i.
func ScaledDotProductAttention(q, k, v *tensor.Matrix, mask bool) (*tensor.Matrix, error) {
	if q.Cols != k.Cols {
		return nil, fmt.Errorf("query dimension %d doesn't match key dimension %d: %w",
			q.Cols, k.Cols, tensor.ErrShapeMismatch)
	}
	if k.Rows != v.Rows {
		return nil, fmt.Errorf("key length %d doesn't match value length %d: %w",
			k.Rows, v.Rows, tensor.ErrShapeMismatch)
	}

	sqrtDim := float32(math.Sqrt(float64(q.Cols)))
	output := tensor.NewMatrix(q.Rows, v.Cols)
	scores := tensor.NewVector(k.Rows)

	for i := 0; i < q.Rows; i++ {
		query := q.Row(i)
		for j := 0; j < k.Rows; j++ {
			if mask && j > i {
				scores[j] = MaskValue
				continue
			}
			s, err := tensor.Dot(query, k.Row(j))
			if err != nil {
				return nil, fmt.Errorf("failed to score query %d against key %d: %w", i, j, err)
			}
			scores[j] = s / sqrtDim
		}

		weights := tensor.Softmax(scores)

		// weights: (kv_len) · v: (kv_len, head_dim) -> (head_dim)
		row, err := tensor.VecMat(weights, v)
		if err != nil {
			return nil, fmt.Errorf("failed to apply attention to V at position %d: %w", i, err)
		}
		if err := output.SetRow(i, row); err != nil {
			return nil, err
		}
	}

	return output, nil
}

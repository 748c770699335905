package model

import (
	"fmt"

	"gotransformer/pkg/tensor"
)

// LayerNorm implements layer normalization with learnable scale and shift.
//
// LayerNorm normalizes each row (one sequence position) across the feature
// dimension and applies a scale (gamma) and shift (beta):
//
//	mean = mean(x)
//	var = mean((x - mean)^2)
//	out = (x - mean) / sqrt(var + eps) * gamma + beta
//
// Gamma starts at ones and beta at zeros; neither changes after construction.
type LayerNorm struct {
	Gamma tensor.Vector // (emb_dim,)
	Beta  tensor.Vector // (emb_dim,)
	Eps   float32
}

// NewLayerNorm creates a new LayerNorm layer with gamma=1 and beta=0.
func NewLayerNorm(embDim int, eps float32) *LayerNorm {
	return &LayerNorm{
		Gamma: tensor.Filled(embDim, 1),
		Beta:  tensor.NewVector(embDim),
		Eps:   eps,
	}
}

// Forward applies layer normalization to every row of x.
//
// Input shape: (seq, emb_dim)
// Output shape: same as input
func (ln *LayerNorm) Forward(x *tensor.Matrix) (*tensor.Matrix, error) {
	if x.Cols != len(ln.Gamma) {
		return nil, fmt.Errorf("input dimension %d doesn't match LayerNorm dimension %d: %w",
			x.Cols, len(ln.Gamma), tensor.ErrShapeMismatch)
	}

	result := tensor.NewMatrix(x.Rows, x.Cols)
	for i := 0; i < x.Rows; i++ {
		row, err := tensor.LayerNorm(x.Row(i), ln.Gamma, ln.Beta, ln.Eps)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		if err := result.SetRow(i, row); err != nil {
			return nil, err
		}
	}

	return result, nil
}

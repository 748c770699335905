package model

import (
	"fmt"

	"gotransformer/pkg/tensor"
)

// FeedForward implements the position-wise feed-forward network.
//
// Architecture:
//  1. Linear projection: x · W1 + B1 -> (hidden_dim)
//  2. ReLU activation
//  3. Linear projection: · W2 + B2 -> (emb_dim)
type FeedForward struct {
	W1 *tensor.Matrix // (emb_dim, hidden_dim)
	B1 tensor.Vector  // (hidden_dim,)
	W2 *tensor.Matrix // (hidden_dim, emb_dim)
	B2 tensor.Vector  // (emb_dim,)
}

// NewFeedForward creates a new feed-forward layer with uniform [-0.5, 0.5]
// weights and zero biases.
func NewFeedForward(embDim, hiddenDim int, rng tensor.RandomSource) *FeedForward {
	return &FeedForward{
		W1: tensor.InitializeMatrix(rng, embDim, hiddenDim),
		B1: tensor.NewVector(hiddenDim),
		W2: tensor.InitializeMatrix(rng, hiddenDim, embDim),
		B2: tensor.NewVector(embDim),
	}
}

// Forward computes the feed-forward transformation of one position.
//
// Input shape: (emb_dim,)
// Output shape: (emb_dim,)
func (ff *FeedForward) Forward(x tensor.Vector) (tensor.Vector, error) {
	hidden, err := tensor.VecMat(x, ff.W1)
	if err != nil {
		return nil, fmt.Errorf("failed to compute W1 projection: %w", err)
	}
	hidden, err = tensor.Add(hidden, ff.B1)
	if err != nil {
		return nil, fmt.Errorf("failed to add B1: %w", err)
	}

	tensor.ReLUInPlace(hidden)

	out, err := tensor.VecMat(hidden, ff.W2)
	if err != nil {
		return nil, fmt.Errorf("failed to compute W2 projection: %w", err)
	}
	out, err = tensor.Add(out, ff.B2)
	if err != nil {
		return nil, fmt.Errorf("failed to add B2: %w", err)
	}
	return out, nil
}

// ForwardMatrix applies Forward to every row of x.
//
// Input shape: (seq, emb_dim)
// Output shape: (seq, emb_dim)
func (ff *FeedForward) ForwardMatrix(x *tensor.Matrix) (*tensor.Matrix, error) {
	result := tensor.NewMatrix(x.Rows, ff.W2.Cols)
	for i := 0; i < x.Rows; i++ {
		row, err := ff.Forward(x.Row(i))
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		if err := result.SetRow(i, row); err != nil {
			return nil, err
		}
	}
	return result, nil
}

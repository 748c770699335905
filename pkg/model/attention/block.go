package attention

import (
	"fmt"

	"gotransformer/pkg/tensor"
)

// FeedForward is an interface for position-wise feed-forward layers
type FeedForward interface {
	ForwardMatrix(x *tensor.Matrix) (*tensor.Matrix, error)
}

// LayerNorm is an interface for layer normalization
type LayerNorm interface {
	Forward(x *tensor.Matrix) (*tensor.Matrix, error)
}

// EncoderLayer implements a single post-norm encoder layer.
//
// Architecture:
//  1. attn = SelfAttn(x)              # no mask
//  2. x1 = Norm1(x + attn)            # residual + normalize
//  3. ff = FF(x1)                     # per position
//  4. out = Norm2(x1 + ff)            # residual + normalize
type EncoderLayer struct {
	SelfAttn *MultiHeadAttention
	FF       FeedForward
	Norm1    LayerNorm // after self-attention
	Norm2    LayerNorm // after feed-forward
}

// NewEncoderLayer creates a new encoder layer from its sublayers.
func NewEncoderLayer(selfAttn *MultiHeadAttention, ff FeedForward, norm1, norm2 LayerNorm) *EncoderLayer {
	return &EncoderLayer{
		SelfAttn: selfAttn,
		FF:       ff,
		Norm1:    norm1,
		Norm2:    norm2,
	}
}

// Forward computes one encoder layer.
//
// Input shape: (seq, emb_dim)
// Output shape: (seq, emb_dim)
func (l *EncoderLayer) Forward(x *tensor.Matrix) (*tensor.Matrix, error) {
	attnOut, err := l.SelfAttn.Forward(x, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compute self-attention: %w", err)
	}

	x1, err := addAndNorm(x, attnOut, l.Norm1)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Norm1: %w", err)
	}

	ffOut, err := l.FF.ForwardMatrix(x1)
	if err != nil {
		return nil, fmt.Errorf("failed to compute feed-forward: %w", err)
	}

	out, err := addAndNorm(x1, ffOut, l.Norm2)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Norm2: %w", err)
	}
	return out, nil
}

// DecoderLayer implements a single post-norm decoder layer.
//
// Architecture:
//  1. x1 = Norm1(x + MaskedSelfAttn(x))
//  2. x2 = Norm2(x1 + CrossAttn(q=x1, kv=encoderOutput))
//  3. out = Norm3(x2 + FF(x2))
//
// SelfAttn and CrossAttn are separate components with their own weights.
type DecoderLayer struct {
	SelfAttn  *MultiHeadAttention
	CrossAttn *MultiHeadAttention
	FF        FeedForward
	Norm1     LayerNorm // after masked self-attention
	Norm2     LayerNorm // after cross-attention
	Norm3     LayerNorm // after feed-forward
}

// NewDecoderLayer creates a new decoder layer from its sublayers.
func NewDecoderLayer(selfAttn, crossAttn *MultiHeadAttention, ff FeedForward, norm1, norm2, norm3 LayerNorm) *DecoderLayer {
	return &DecoderLayer{
		SelfAttn:  selfAttn,
		CrossAttn: crossAttn,
		FF:        ff,
		Norm1:     norm1,
		Norm2:     norm2,
		Norm3:     norm3,
	}
}

// Forward computes one decoder layer.
//
// Input shapes:
//   - x: (target_seq, emb_dim)
//   - encoderOutput: (source_seq, emb_dim), source_seq may differ from target_seq
//
// Output shape: (target_seq, emb_dim)
func (l *DecoderLayer) Forward(x, encoderOutput *tensor.Matrix) (*tensor.Matrix, error) {
	selfOut, err := l.SelfAttn.Forward(x, true)
	if err != nil {
		return nil, fmt.Errorf("failed to compute masked self-attention: %w", err)
	}

	x1, err := addAndNorm(x, selfOut, l.Norm1)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Norm1: %w", err)
	}

	crossOut, err := l.CrossAttn.CrossForward(x1, encoderOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to compute cross-attention: %w", err)
	}

	x2, err := addAndNorm(x1, crossOut, l.Norm2)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Norm2: %w", err)
	}

	ffOut, err := l.FF.ForwardMatrix(x2)
	if err != nil {
		return nil, fmt.Errorf("failed to compute feed-forward: %w", err)
	}

	out, err := addAndNorm(x2, ffOut, l.Norm3)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Norm3: %w", err)
	}
	return out, nil
}

// addAndNorm computes norm(x + sublayer) row by row.
func addAndNorm(x, sublayer *tensor.Matrix, norm LayerNorm) (*tensor.Matrix, error) {
	sum, err := tensor.AddMatrix(x, sublayer)
	if err != nil {
		return nil, fmt.Errorf("failed to add residual: %w", err)
	}
	return norm.Forward(sum)
}

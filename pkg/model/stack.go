package model

import (
	"fmt"

	"gotransformer/pkg/model/attention"
	"gotransformer/pkg/tensor"
)

// Encoder is a stack of independently parameterized encoder layers.
type Encoder struct {
	Layers []*attention.EncoderLayer
}

// NewEncoder creates config.NumLayers encoder layers, each with its own weights.
func NewEncoder(config Config, rng tensor.RandomSource) (*Encoder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	enc := &Encoder{Layers: make([]*attention.EncoderLayer, config.NumLayers)}
	for i := range enc.Layers {
		selfAttn, err := attention.New(config.EmbeddingDim, config.NumHeads, rng)
		if err != nil {
			return nil, fmt.Errorf("encoder layer %d: %w", i, err)
		}
		enc.Layers[i] = attention.NewEncoderLayer(
			selfAttn,
			NewFeedForward(config.EmbeddingDim, config.HiddenDim, rng),
			NewLayerNorm(config.EmbeddingDim, config.Epsilon),
			NewLayerNorm(config.EmbeddingDim, config.Epsilon),
		)
	}
	return enc, nil
}

// Forward threads input through every layer in order.
//
// Input shape: (seq, emb_dim)
// Output shape: (seq, emb_dim)
func (e *Encoder) Forward(input *tensor.Matrix) (*tensor.Matrix, error) {
	x := input
	for i, layer := range e.Layers {
		var err error
		x, err = layer.Forward(x)
		if err != nil {
			return nil, fmt.Errorf("encoder layer %d: %w", i, err)
		}
	}
	return x, nil
}

// Decoder is a stack of independently parameterized decoder layers.
type Decoder struct {
	Layers []*attention.DecoderLayer
}

// NewDecoder creates config.NumLayers decoder layers, each with its own
// masked self-attention, cross-attention and feed-forward weights.
func NewDecoder(config Config, rng tensor.RandomSource) (*Decoder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dec := &Decoder{Layers: make([]*attention.DecoderLayer, config.NumLayers)}
	for i := range dec.Layers {
		selfAttn, err := attention.New(config.EmbeddingDim, config.NumHeads, rng)
		if err != nil {
			return nil, fmt.Errorf("decoder layer %d: %w", i, err)
		}
		crossAttn, err := attention.New(config.EmbeddingDim, config.NumHeads, rng)
		if err != nil {
			return nil, fmt.Errorf("decoder layer %d: %w", i, err)
		}
		dec.Layers[i] = attention.NewDecoderLayer(
			selfAttn,
			crossAttn,
			NewFeedForward(config.EmbeddingDim, config.HiddenDim, rng),
			NewLayerNorm(config.EmbeddingDim, config.Epsilon),
			NewLayerNorm(config.EmbeddingDim, config.Epsilon),
			NewLayerNorm(config.EmbeddingDim, config.Epsilon),
		)
	}
	return dec, nil
}

// Forward threads target through every layer, passing the same encoder
// output to each layer's cross-attention.
//
// Input shapes:
//   - target: (target_seq, emb_dim)
//   - encoderOutput: (source_seq, emb_dim)
//
// Output shape: (target_seq, emb_dim)
func (d *Decoder) Forward(target, encoderOutput *tensor.Matrix) (*tensor.Matrix, error) {
	x := target
	for i, layer := range d.Layers {
		var err error
		x, err = layer.Forward(x, encoderOutput)
		if err != nil {
			return nil, fmt.Errorf("decoder layer %d: %w", i, err)
		}
	}
	return x, nil
}

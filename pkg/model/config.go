// Package model provides the encoder-decoder transformer built on the
// attention package: layer normalization, feed-forward sublayers, the encoder
// and decoder stacks, sinusoidal embeddings and next-word prediction.
//
// Key features:
//   - Post-norm residual sublayers (add, then LayerNorm)
//   - ReLU feed-forward network
//   - Multi-head attention with a separate cross-attention per decoder layer
//   - Fixed sinusoidal positional encoding
//   - Weights drawn once from an injected seeded generator, never trained
package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the model hyperparameters.
type Config struct {
	// EmbeddingDim is the dimension of token embeddings and of every sublayer output
	EmbeddingDim int `json:"embedding_dim"`

	// NumHeads is the number of attention heads; must divide EmbeddingDim
	NumHeads int `json:"num_heads"`

	// HiddenDim is the width of the feed-forward hidden layer
	HiddenDim int `json:"hidden_dim"`

	// NumLayers is the number of encoder layers and of decoder layers
	NumLayers int `json:"num_layers"`

	// MaxSeqLen is the number of precomputed positional encodings
	MaxSeqLen int `json:"max_seq_len"`

	// Epsilon is the LayerNorm variance offset
	Epsilon float32 `json:"epsilon"`

	// Seed seeds the weight initialization generator
	Seed uint64 `json:"seed"`

	// EncoderOnly predicts from the last encoder position and skips the decoder
	EncoderOnly bool `json:"encoder_only"`
}

// DefaultConfig returns the small demo configuration.
func DefaultConfig() Config {
	return Config{
		EmbeddingDim: 64,
		NumHeads:     4,
		HiddenDim:    128,
		NumLayers:    2,
		MaxSeqLen:    100,
		Epsilon:      1e-5,
		Seed:         42,
	}
}

// Validate checks if the configuration is valid and consistent.
// Returns an error if any parameters are incompatible.
func (c Config) Validate() error {
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive, got %d", c.EmbeddingDim)
	}
	if c.NumHeads <= 0 {
		return fmt.Errorf("num_heads must be positive, got %d", c.NumHeads)
	}
	if c.EmbeddingDim%c.NumHeads != 0 {
		return fmt.Errorf("embedding_dim (%d) must be divisible by num_heads (%d)",
			c.EmbeddingDim, c.NumHeads)
	}
	if c.HiddenDim <= 0 {
		return fmt.Errorf("hidden_dim must be positive, got %d", c.HiddenDim)
	}
	if c.NumLayers <= 0 {
		return fmt.Errorf("num_layers must be positive, got %d", c.NumLayers)
	}
	if c.MaxSeqLen <= 0 {
		return fmt.Errorf("max_seq_len must be positive, got %d", c.MaxSeqLen)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	return nil
}

// HeadDimension returns the dimension per attention head.
func (c Config) HeadDimension() int {
	return c.EmbeddingDim / c.NumHeads
}

// LoadConfig reads a JSON configuration file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(filename string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

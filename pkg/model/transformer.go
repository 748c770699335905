package model

import (
	"errors"
	"fmt"
	"log/slog"

	"gotransformer/pkg/tensor"
	"gotransformer/pkg/tokenizer"
)

// ErrSequenceTooLong is returned when a token sequence has more positions than
// the precomputed positional encodings.
var ErrSequenceTooLong = errors.New("sequence exceeds max sequence length")

// Transformer implements the complete encoder-decoder model used for
// next-word prediction.
//
// Architecture:
//  1. Embeddings: word vector + sinusoidal position, (seq, emb_dim)
//  2. Encoder: NumLayers encoder layers over the embedded input
//  3. Decoder: NumLayers decoder layers, target = embedded input,
//     cross-attending to the encoder output (skipped when EncoderOnly)
//  4. Output projection of the last position: (emb_dim, vocab_size)
//  5. Softmax, argmax, decode
type Transformer struct {
	Config     Config
	Tokenizer  tokenizer.Tokenizer
	Embeddings *Embeddings
	Encoder    *Encoder
	Decoder    *Decoder
	Output     *tensor.Matrix // (emb_dim, vocab_size)

	// Logger receives warnings about unknown words. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewTransformer creates a transformer whose vocabulary is taken from tok.
// All weights are drawn from a generator seeded with config.Seed, so two
// models built from equal configs and vocabularies are identical.
func NewTransformer(config Config, tok tokenizer.Tokenizer) (*Transformer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if tok == nil {
		return nil, errors.New("tokenizer is required")
	}
	vocabSize := tok.VocabularySize()
	if vocabSize <= 0 {
		return nil, errors.New("vocabulary is empty")
	}

	rng := tensor.NewRandom(config.Seed)

	// Draw order is part of the model's identity: embeddings, encoder,
	// decoder, output.
	embeddings := NewEmbeddings(vocabSize, config.EmbeddingDim, config.MaxSeqLen, rng)

	encoder, err := NewEncoder(config, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build encoder: %w", err)
	}

	decoder, err := NewDecoder(config, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}

	return &Transformer{
		Config:     config,
		Tokenizer:  tok,
		Embeddings: embeddings,
		Encoder:    encoder,
		Decoder:    decoder,
		Output:     tensor.InitializeMatrix(rng, config.EmbeddingDim, vocabSize),
		Logger:     slog.Default(),
	}, nil
}

// Encode tokenizes sentence and maps every word to its index. Unknown words
// map to tokenizer.NotFound and are logged.
func (t *Transformer) Encode(sentence string) []int {
	words := t.Tokenizer.Tokenize(sentence)
	ids := make([]int, len(words))
	for i, w := range words {
		ids[i] = t.Tokenizer.Encode(w)
		if ids[i] == tokenizer.NotFound {
			t.logger().Warn("unknown word, using zero embedding", "word", w, "position", i)
		}
	}
	return ids
}

// Forward computes the final representation of a token sequence.
//
// Input: token indices, NotFound allowed
// Output shape: (seq, emb_dim)
func (t *Transformer) Forward(tokens []int) (*tensor.Matrix, error) {
	x, err := t.Embeddings.Sequence(tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to embed tokens: %w", err)
	}

	encoded, err := t.Encoder.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("failed in encoder: %w", err)
	}
	if t.Config.EncoderOnly {
		return encoded, nil
	}

	decoded, err := t.Decoder.Forward(x, encoded)
	if err != nil {
		return nil, fmt.Errorf("failed in decoder: %w", err)
	}
	return decoded, nil
}

// Logits projects the last position of the final representation onto the
// vocabulary.
//
// Output shape: (vocab_size,)
func (t *Transformer) Logits(tokens []int) (tensor.Vector, error) {
	if len(tokens) == 0 {
		return nil, errors.New("cannot compute logits for an empty sequence")
	}

	hidden, err := t.Forward(tokens)
	if err != nil {
		return nil, err
	}

	logits, err := tensor.VecMat(hidden.Row(hidden.Rows-1), t.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to compute output logits: %w", err)
	}
	return logits, nil
}

// NextTokenDistribution returns the softmax of Logits.
func (t *Transformer) NextTokenDistribution(tokens []int) (tensor.Vector, error) {
	logits, err := t.Logits(tokens)
	if err != nil {
		return nil, err
	}
	return tensor.Softmax(logits), nil
}

// PredictToken returns the most probable next token index. Ties resolve to
// the lowest index.
func (t *Transformer) PredictToken(tokens []int) (int, error) {
	dist, err := t.NextTokenDistribution(tokens)
	if err != nil {
		return tokenizer.NotFound, err
	}
	return tensor.Argmax(dist), nil
}

// Predict returns the most probable next word for sentence. An empty sentence
// yields an empty word and no error.
func (t *Transformer) Predict(sentence string) (string, error) {
	tokens := t.Encode(sentence)
	if len(tokens) == 0 {
		return "", nil
	}

	id, err := t.PredictToken(tokens)
	if err != nil {
		return "", fmt.Errorf("failed to predict next word: %w", err)
	}
	return t.Tokenizer.Decode(id), nil
}

func (t *Transformer) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

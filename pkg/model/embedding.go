package model

import (
	"fmt"
	"math"

	"gotransformer/pkg/tensor"
)

// Embeddings combines a word embedding table with fixed sinusoidal positional
// encodings precomputed for every position below MaxSeqLen.
type Embeddings struct {
	Word       *tensor.Matrix // (vocab_size, emb_dim), random
	Positional *tensor.Matrix // (max_seq_len, emb_dim), fixed
}

// NewEmbeddings creates a random word table and the positional encodings.
func NewEmbeddings(vocabSize, embDim, maxSeqLen int, rng tensor.RandomSource) *Embeddings {
	return &Embeddings{
		Word:       tensor.InitializeMatrix(rng, vocabSize, embDim),
		Positional: PositionalEncoding(maxSeqLen, embDim),
	}
}

// PositionalEncoding computes the sinusoidal encodings for positions
// 0..maxSeqLen-1. For dimension i of position pos:
//
//	even i: sin(pos / 10000^(2i/emb_dim))
//	odd i:  cos(pos / 10000^(2(i-1)/emb_dim))
func PositionalEncoding(maxSeqLen, embDim int) *tensor.Matrix {
	pe := tensor.NewMatrix(maxSeqLen, embDim)
	for pos := 0; pos < maxSeqLen; pos++ {
		row := pe.Row(pos)
		for i := 0; i < embDim; i++ {
			if i%2 == 0 {
				row[i] = float32(math.Sin(float64(pos) / math.Pow(10000, 2*float64(i)/float64(embDim))))
			} else {
				row[i] = float32(math.Cos(float64(pos) / math.Pow(10000, 2*float64(i-1)/float64(embDim))))
			}
		}
	}
	return pe
}

// VocabSize returns the number of rows in the word table.
func (e *Embeddings) VocabSize() int {
	return e.Word.Rows
}

// MaxSeqLen returns the number of precomputed positions.
func (e *Embeddings) MaxSeqLen() int {
	return e.Positional.Rows
}

// Embedding returns word vector + positional vector for a token at a position.
func (e *Embeddings) Embedding(tokenIndex, position int) (tensor.Vector, error) {
	if tokenIndex < 0 || tokenIndex >= e.Word.Rows {
		return nil, fmt.Errorf("invalid token ID %d, vocab size is %d", tokenIndex, e.Word.Rows)
	}
	if position < 0 || position >= e.Positional.Rows {
		return nil, fmt.Errorf("position %d exceeds max sequence length %d: %w",
			position, e.Positional.Rows, ErrSequenceTooLong)
	}
	return tensor.Add(e.Word.Row(tokenIndex), e.Positional.Row(position))
}

// Sequence embeds a token sequence into a (seq, emb_dim) matrix.
// Negative token IDs (unknown words) become zero rows with no positional term.
func (e *Embeddings) Sequence(tokens []int) (*tensor.Matrix, error) {
	if len(tokens) > e.Positional.Rows {
		return nil, fmt.Errorf("sequence length %d exceeds max sequence length %d: %w",
			len(tokens), e.Positional.Rows, ErrSequenceTooLong)
	}

	out := tensor.NewMatrix(len(tokens), e.Word.Cols)
	for pos, id := range tokens {
		if id < 0 {
			continue
		}
		emb, err := e.Embedding(id, pos)
		if err != nil {
			return nil, fmt.Errorf("failed to embed position %d: %w", pos, err)
		}
		if err := out.SetRow(pos, emb); err != nil {
			return nil, err
		}
	}
	return out, nil
}

package model

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Generate continues sentence with up to maxNewWords words using greedy
// decoding (argmax at every step).
//
// Each step:
//  1. Crop the running context to the last MaxSeqLen tokens
//  2. Predict the next token from the cropped context
//  3. Append it to the running sequence
//
// Unknown input words stay in the context as zero embeddings. An empty
// sentence generates nothing.
func (t *Transformer) Generate(sentence string, maxNewWords int) ([]string, error) {
	idx := t.Encode(sentence)
	if len(idx) == 0 || maxNewWords <= 0 {
		return nil, nil
	}

	start := len(idx)
	for i := 0; i < maxNewWords; i++ {
		idxCond := idx
		if len(idx) > t.Config.MaxSeqLen {
			idxCond = idx[len(idx)-t.Config.MaxSeqLen:]
		}

		next, err := t.PredictToken(idxCond)
		if err != nil {
			return nil, fmt.Errorf("generation failed at step %d: %w", i, err)
		}
		idx = append(idx, next)
	}

	return lo.Map(idx[start:], func(id int, _ int) string {
		return t.Tokenizer.Decode(id)
	}), nil
}

// Candidate is a vocabulary word with its predicted probability.
type Candidate struct {
	Word        string
	Index       int
	Probability float32
}

// TopK returns the k most probable next words for sentence, most probable
// first. Equal probabilities keep vocabulary order.
func (t *Transformer) TopK(sentence string, k int) ([]Candidate, error) {
	tokens := t.Encode(sentence)
	if len(tokens) == 0 || k <= 0 {
		return nil, nil
	}

	dist, err := t.NextTokenDistribution(tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to compute distribution: %w", err)
	}

	candidates := lo.Map(dist, func(p float32, i int) Candidate {
		return Candidate{Word: t.Tokenizer.Decode(i), Index: i, Probability: p}
	})
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Probability, a.Probability)
	})

	return candidates[:min(k, len(candidates))], nil
}

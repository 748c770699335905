package attention

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"gotransformer/pkg/tensor"
)

// ErrHeadDivisibility is returned when the embedding dimension cannot be split
// evenly across heads.
var ErrHeadDivisibility = errors.New("embedding dimension must be divisible by number of heads")

// MultiHeadAttention implements multi-head scaled dot-product attention.
//
// The projected Q, K and V are split into NumHeads contiguous column blocks of
// width HeadDim. Each head attends independently, the head outputs are written
// back into their column blocks and the result is projected through WOut.
//
// The same component serves two use sites:
//   - Forward: self-attention, Q, K and V all come from one input
//   - CrossForward: Q comes from one input, K and V from another (encoder output)
type MultiHeadAttention struct {
	EmbeddingDim int
	NumHeads     int
	HeadDim      int

	WQuery *tensor.Matrix // (emb_dim, emb_dim)
	WKey   *tensor.Matrix // (emb_dim, emb_dim)
	WValue *tensor.Matrix // (emb_dim, emb_dim)
	WOut   *tensor.Matrix // (emb_dim, emb_dim)
}

// New creates a multi-head attention layer with weights drawn uniformly from
// [-0.5, 0.5] using rng.
func New(embeddingDim, numHeads int, rng tensor.RandomSource) (*MultiHeadAttention, error) {
	if embeddingDim <= 0 {
		return nil, fmt.Errorf("embedding_dim must be positive, got %d", embeddingDim)
	}
	if numHeads <= 0 {
		return nil, fmt.Errorf("num_heads must be positive, got %d", numHeads)
	}
	if embeddingDim%numHeads != 0 {
		return nil, fmt.Errorf("embedding_dim (%d) is not divisible by num_heads (%d): %w",
			embeddingDim, numHeads, ErrHeadDivisibility)
	}

	return &MultiHeadAttention{
		EmbeddingDim: embeddingDim,
		NumHeads:     numHeads,
		HeadDim:      embeddingDim / numHeads,
		WQuery:       tensor.InitializeMatrix(rng, embeddingDim, embeddingDim),
		WKey:         tensor.InitializeMatrix(rng, embeddingDim, embeddingDim),
		WValue:       tensor.InitializeMatrix(rng, embeddingDim, embeddingDim),
		WOut:         tensor.InitializeMatrix(rng, embeddingDim, embeddingDim),
	}, nil
}

// Forward computes self-attention over input.
//
// Input shape: (seq, emb_dim)
// Output shape: (seq, emb_dim)
//
// With mask set, position i attends only to positions 0..i.
func (m *MultiHeadAttention) Forward(input *tensor.Matrix, mask bool) (*tensor.Matrix, error) {
	return m.attend(input, input, mask)
}

// CrossForward computes cross-attention: queries are projected from
// queryInput, keys and values from keyValueInput. No mask is applied.
//
// Input shapes:
//   - queryInput: (query_len, emb_dim)
//   - keyValueInput: (kv_len, emb_dim), kv_len may differ from query_len
//
// Output shape: (query_len, emb_dim)
func (m *MultiHeadAttention) CrossForward(queryInput, keyValueInput *tensor.Matrix) (*tensor.Matrix, error) {
	return m.attend(queryInput, keyValueInput, false)
}

func (m *MultiHeadAttention) attend(queryInput, keyValueInput *tensor.Matrix, mask bool) (*tensor.Matrix, error) {
	if queryInput.Cols != m.EmbeddingDim {
		return nil, fmt.Errorf("query input dimension %d doesn't match expected %d: %w",
			queryInput.Cols, m.EmbeddingDim, tensor.ErrShapeMismatch)
	}
	if keyValueInput.Cols != m.EmbeddingDim {
		return nil, fmt.Errorf("key/value input dimension %d doesn't match expected %d: %w",
			keyValueInput.Cols, m.EmbeddingDim, tensor.ErrShapeMismatch)
	}
	if keyValueInput.Rows == 0 && queryInput.Rows > 0 {
		return nil, fmt.Errorf("key/value input has no positions to attend to")
	}

	// Step 1: Project to Q, K, V
	// Q: (query_len, emb_dim), K and V: (kv_len, emb_dim)
	qAll, err := tensor.MatMul(queryInput, m.WQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to compute Q: %w", err)
	}
	kAll, err := tensor.MatMul(keyValueInput, m.WKey)
	if err != nil {
		return nil, fmt.Errorf("failed to compute K: %w", err)
	}
	vAll, err := tensor.MatMul(keyValueInput, m.WValue)
	if err != nil {
		return nil, fmt.Errorf("failed to compute V: %w", err)
	}

	// Steps 2-4: per-head attention, written back into the head's column block.
	// Heads only read the projections and write disjoint columns of concat.
	concat := tensor.NewMatrix(queryInput.Rows, m.EmbeddingDim)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for h := 0; h < m.NumHeads; h++ {
		h := h
		g.Go(func() error {
			return m.head(h, qAll, kAll, vAll, concat, mask)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Step 5: Output projection
	output, err := tensor.MatMul(concat, m.WOut)
	if err != nil {
		return nil, fmt.Errorf("failed to apply output projection: %w", err)
	}

	return output, nil
}

func (m *MultiHeadAttention) head(h int, qAll, kAll, vAll, concat *tensor.Matrix, mask bool) error {
	start, end := h*m.HeadDim, (h+1)*m.HeadDim

	q, err := qAll.ColumnBlock(start, end)
	if err != nil {
		return fmt.Errorf("head %d: failed to slice Q: %w", h, err)
	}
	k, err := kAll.ColumnBlock(start, end)
	if err != nil {
		return fmt.Errorf("head %d: failed to slice K: %w", h, err)
	}
	v, err := vAll.ColumnBlock(start, end)
	if err != nil {
		return fmt.Errorf("head %d: failed to slice V: %w", h, err)
	}

	out, err := ScaledDotProductAttention(q, k, v, mask)
	if err != nil {
		return fmt.Errorf("head %d: %w", h, err)
	}

	if err := concat.SetColumnBlock(start, out); err != nil {
		return fmt.Errorf("head %d: failed to concatenate: %w", h, err)
	}
	return nil
}

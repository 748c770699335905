package attention

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotransformer/pkg/tensor"
)

func mustRows(t *testing.T, rows ...tensor.Vector) *tensor.Matrix {
	t.Helper()
	m, err := tensor.FromRows(rows)
	require.NoError(t, err)
	return m
}

// uniformAttention sets Q and K projections to zero so every score is equal,
// and V and output projections to identity.
func uniformAttention(t *testing.T, embDim, numHeads int) *MultiHeadAttention {
	t.Helper()
	attn, err := New(embDim, numHeads, tensor.NewRandom(1))
	require.NoError(t, err)
	attn.WQuery = tensor.NewMatrix(embDim, embDim)
	attn.WKey = tensor.NewMatrix(embDim, embDim)
	attn.WValue = tensor.Identity(embDim)
	attn.WOut = tensor.Identity(embDim)
	return attn
}

// TestScaledDotProductAttention_HandComputed checks a single query against two keys.
func TestScaledDotProductAttention_HandComputed(t *testing.T) {
	q := mustRows(t, tensor.Vector{1, 0})
	k := mustRows(t, tensor.Vector{1, 0}, tensor.Vector{0, 1})
	v := mustRows(t, tensor.Vector{1, 2}, tensor.Vector{3, 4})

	out, err := ScaledDotProductAttention(q, k, v, false)
	require.NoError(t, err)

	// scores = [1/sqrt(2), 0]
	e := math.Exp(1 / math.Sqrt2)
	w0, w1 := e/(e+1), 1/(e+1)
	assert.InDelta(t, w0*1+w1*3, out.At(0, 0), 1e-5)
	assert.InDelta(t, w0*2+w1*4, out.At(0, 1), 1e-5)
}

// TestScaledDotProductAttention_Mask checks that position 0 only sees itself.
func TestScaledDotProductAttention_Mask(t *testing.T) {
	q := mustRows(t, tensor.Vector{1, 1}, tensor.Vector{0.5, -1}, tensor.Vector{2, 0})
	v := mustRows(t, tensor.Vector{1, 2}, tensor.Vector{30, 40}, tensor.Vector{500, 600})

	out, err := ScaledDotProductAttention(q, q, v, true)
	require.NoError(t, err)

	assert.Equal(t, tensor.Vector{1, 2}, out.Row(0))

	// Row 1 is a convex combination of v[0] and v[1] only
	row1 := out.Row(1)
	assert.GreaterOrEqual(t, row1[0], float32(1))
	assert.LessOrEqual(t, row1[0], float32(30))

	unmasked, err := ScaledDotProductAttention(q, q, v, false)
	require.NoError(t, err)
	assert.False(t, out.Equals(unmasked, 1e-3), "mask should change the result")
}

func TestScaledDotProductAttention_ShapeErrors(t *testing.T) {
	q := tensor.NewMatrix(2, 4)
	_, err := ScaledDotProductAttention(q, tensor.NewMatrix(2, 3), tensor.NewMatrix(2, 4), false)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = ScaledDotProductAttention(q, tensor.NewMatrix(2, 4), tensor.NewMatrix(3, 4), false)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

// TestNew_Divisibility tests that a non-divisible head count fails at construction.
func TestNew_Divisibility(t *testing.T) {
	tests := []struct {
		name     string
		embDim   int
		numHeads int
		wantErr  bool
	}{
		{"5 by 2", 5, 2, true},
		{"zero heads", 8, 0, true},
		{"zero dim", 0, 2, true},
		{"8 by 2", 8, 2, false},
		{"8 by 8", 8, 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attn, err := New(tt.embDim, tt.numHeads, tensor.NewRandom(1))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.embDim/tt.numHeads, attn.HeadDim)
				return
			}
			require.Error(t, err)
			assert.Nil(t, attn)
		})
	}

	_, err := New(5, 2, tensor.NewRandom(1))
	require.ErrorIs(t, err, ErrHeadDivisibility)
	assert.Contains(t, err.Error(), "embedding_dim (5) is not divisible by num_heads (2)")
}

// TestMultiHeadAttention_Shapes checks output shapes for every head count dividing emb_dim.
func TestMultiHeadAttention_Shapes(t *testing.T) {
	const embDim = 12
	rng := tensor.NewRandom(3)
	input := tensor.InitializeMatrix(rng, 5, embDim)

	for _, numHeads := range []int{1, 2, 3, 4, 6, 12} {
		attn, err := New(embDim, numHeads, rng)
		require.NoError(t, err)

		for _, mask := range []bool{false, true} {
			out, err := attn.Forward(input, mask)
			require.NoError(t, err)
			assert.Equal(t, 5, out.Rows, "heads=%d", numHeads)
			assert.Equal(t, embDim, out.Cols, "heads=%d", numHeads)
		}

		memory := tensor.InitializeMatrix(rng, 3, embDim)
		out, err := attn.CrossForward(input, memory)
		require.NoError(t, err)
		assert.Equal(t, 5, out.Rows)
		assert.Equal(t, embDim, out.Cols)
	}
}

func TestMultiHeadAttention_InputValidation(t *testing.T) {
	attn, err := New(8, 2, tensor.NewRandom(1))
	require.NoError(t, err)

	_, err = attn.Forward(tensor.NewMatrix(3, 6), false)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = attn.CrossForward(tensor.NewMatrix(3, 8), tensor.NewMatrix(3, 4))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = attn.CrossForward(tensor.NewMatrix(3, 8), tensor.NewMatrix(0, 8))
	assert.Error(t, err)

	out, err := attn.Forward(tensor.NewMatrix(0, 8), false)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Rows)
}

// TestMultiHeadAttention_Causality changes a future position and checks that
// earlier output rows are unchanged.
func TestMultiHeadAttention_Causality(t *testing.T) {
	const embDim, seqLen = 8, 5
	rng := tensor.NewRandom(5)
	attn, err := New(embDim, 2, rng)
	require.NoError(t, err)

	base := tensor.InitializeMatrix(rng, seqLen, embDim)
	baseOut, err := attn.Forward(base, true)
	require.NoError(t, err)

	for j := 1; j < seqLen; j++ {
		changed := base.Clone()
		for d := 0; d < embDim; d++ {
			changed.Set(j, d, changed.At(j, d)+float32(d+1))
		}

		out, err := attn.Forward(changed, true)
		require.NoError(t, err)

		for i := 0; i < j; i++ {
			assert.Equal(t, baseOut.Row(i), out.Row(i), "row %d changed after editing position %d", i, j)
		}
		assert.NotEqual(t, baseOut.Row(j), out.Row(j), "row %d should see its own change", j)
	}
}

// TestMultiHeadAttention_UniformAverages checks that equal scores average the values.
func TestMultiHeadAttention_UniformAverages(t *testing.T) {
	attn := uniformAttention(t, 4, 2)
	input := mustRows(t, tensor.Vector{1, 2, 3, 4}, tensor.Vector{3, 2, 1, 0})

	out, err := attn.Forward(input, false)
	require.NoError(t, err)

	want := mustRows(t, tensor.Vector{2, 2, 2, 2}, tensor.Vector{2, 2, 2, 2})
	assert.True(t, out.Equals(want, 1e-6), "got %v", out)

	// With the mask, position 0 keeps its own value and position 1 averages both
	masked, err := attn.Forward(input, true)
	require.NoError(t, err)
	want = mustRows(t, tensor.Vector{1, 2, 3, 4}, tensor.Vector{2, 2, 2, 2})
	assert.True(t, masked.Equals(want, 1e-6), "got %v", masked)
}

// TestMultiHeadAttention_CrossUsesKeyValueInput checks that cross-attention
// reads keys and values from the second input.
func TestMultiHeadAttention_CrossUsesKeyValueInput(t *testing.T) {
	attn := uniformAttention(t, 4, 2)
	query := mustRows(t, tensor.Vector{1, 2, 3, 4}, tensor.Vector{3, 2, 1, 0})
	memory := mustRows(t,
		tensor.Vector{10, 0, 0, 0},
		tensor.Vector{0, 10, 0, 0},
		tensor.Vector{0, 0, 10, 10},
	)

	out, err := attn.CrossForward(query, memory)
	require.NoError(t, err)

	// Every query row is the mean of the memory rows, not of the query rows
	mean := tensor.Vector{10.0 / 3, 10.0 / 3, 10.0 / 3, 10.0 / 3}
	for i := 0; i < out.Rows; i++ {
		if diff := cmp.Diff(mean, out.Row(i), cmpopts.EquateApprox(0, 1e-5)); diff != "" {
			t.Errorf("row %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	self, err := attn.Forward(query, false)
	require.NoError(t, err)
	assert.False(t, self.Equals(out, 1e-3))
}

// TestMultiHeadAttention_Deterministic checks that concurrent heads give repeatable output.
func TestMultiHeadAttention_Deterministic(t *testing.T) {
	a, err := New(16, 4, tensor.NewRandom(9))
	require.NoError(t, err)
	b, err := New(16, 4, tensor.NewRandom(9))
	require.NoError(t, err)

	input := tensor.InitializeMatrix(tensor.NewRandom(10), 6, 16)
	outA, err := a.Forward(input, true)
	require.NoError(t, err)
	outB, err := b.Forward(input, true)
	require.NoError(t, err)

	assert.Equal(t, outA, outB)
}

// TestMultiHeadAttention_HeadsAreIndependent compares against running each head by hand.
func TestMultiHeadAttention_HeadsAreIndependent(t *testing.T) {
	const embDim, numHeads = 6, 3
	rng := tensor.NewRandom(21)
	attn, err := New(embDim, numHeads, rng)
	require.NoError(t, err)
	input := tensor.InitializeMatrix(rng, 4, embDim)

	got, err := attn.Forward(input, false)
	require.NoError(t, err)

	q, _ := tensor.MatMul(input, attn.WQuery)
	k, _ := tensor.MatMul(input, attn.WKey)
	v, _ := tensor.MatMul(input, attn.WValue)
	concat := tensor.NewMatrix(4, embDim)
	for h := 0; h < numHeads; h++ {
		qh, _ := q.ColumnBlock(h*2, h*2+2)
		kh, _ := k.ColumnBlock(h*2, h*2+2)
		vh, _ := v.ColumnBlock(h*2, h*2+2)
		out, err := ScaledDotProductAttention(qh, kh, vh, false)
		require.NoError(t, err)
		require.NoError(t, concat.SetColumnBlock(h*2, out))
	}
	want, err := tensor.MatMul(concat, attn.WOut)
	require.NoError(t, err)

	assert.True(t, got.Equals(want, 1e-6))
}

// BenchmarkMultiHeadAttention benchmarks masked multi-head self-attention.
func BenchmarkMultiHeadAttention(b *testing.B) {
	attn, err := New(256, 8, tensor.NewRandom(1))
	if err != nil {
		b.Fatal(err)
	}
	input := tensor.InitializeMatrix(tensor.NewRandom(2), 64, 256)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := attn.Forward(input, true); err != nil {
			b.Fatal(err)
		}
	}
}

package tensor

import (
	"golang.org/x/exp/rand"
)

// RandomSource produces uniform values in [0, 1).
// *rand.Rand from golang.org/x/exp/rand satisfies it.
type RandomSource interface {
	Float32() float32
}

// NewRandom returns a deterministic generator seeded with seed.
// Generators are not safe for concurrent use; weights are initialized
// sequentially at construction time.
func NewRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// InitializeMatrix returns a rows×cols matrix filled with independent uniform
// values in [-0.5, 0.5] drawn from rng.
func InitializeMatrix(rng RandomSource, rows, cols int) *Matrix {
	m := NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = rng.Float32() - 0.5
	}
	return m
}

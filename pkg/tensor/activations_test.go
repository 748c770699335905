package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestReLU tests ReLU on mixed-sign input
func TestReLU(t *testing.T) {
	testCases := []struct {
		name     string
		input    Vector
		expected Vector
	}{
		{"positive", Vector{1, 2.5, 0.1}, Vector{1, 2.5, 0.1}},
		{"negative", Vector{-1, -0.5}, Vector{0, 0}},
		{"mixed", Vector{-2, 0, 3}, Vector{0, 0, 3}},
		{"empty", Vector{}, Vector{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := tc.input.Clone()
			assert.Equal(t, tc.expected, ReLU(tc.input))
			// ReLU must not mutate its input
			assert.Equal(t, input, tc.input)
		})
	}
}

// TestReLUInPlace tests that the in-place variant matches ReLU
func TestReLUInPlace(t *testing.T) {
	v := Vector{-3, 4, -0.25, 0, 7}
	want := ReLU(v)

	ReLUInPlace(v)

	assert.Equal(t, want, v)
}

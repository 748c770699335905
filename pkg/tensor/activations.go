package tensor

// ReLU applies the rectified linear unit element-wise:
//
//	ReLU(x) = max(0, x)
//
// Input: vector of any length
// Output: new vector of the same length
func ReLU(v Vector) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		if x > 0 {
			out[i] = x
		}
	}
	return out
}

// ReLUInPlace applies ReLU to v without allocating.
func ReLUInPlace(v Vector) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

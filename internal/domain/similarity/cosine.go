// Package similarity scores directional closeness between embeddings.
package similarity

import (
	"github.com/viant/vec/search"
)

// Epsilon is added to the norm product so zero-magnitude vectors score 0 instead of NaN.
const Epsilon = 1e-8

// Cosine returns dot(a, b) / (|a|·|b| + Epsilon).
// Result is in [-1, 1]; vectors of different length score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	na := float64(search.Float32s(a).Magnitude())
	nb := float64(search.Float32s(b).Magnitude())

	s := dot / (na*nb + Epsilon)
	// float32 magnitudes can push |s| a hair past 1.
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

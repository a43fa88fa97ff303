package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MaxDistance is returned for vectors that cannot be compared.
// It is never below any threshold, so such vectors never match.
const MaxDistance = math.MaxFloat64

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// EuclideanDistance returns the L2 distance between a and b.
// Returns MaxDistance for empty vectors or vectors of different length.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return MaxDistance
	}
	return floats.Distance(widen(a), widen(b), 2)
}

// CosineDistance returns 1 - cosine similarity, in [0, 2].
// Returns MaxDistance for empty, zero-magnitude or differently sized vectors.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return MaxDistance
	}

	wa, wb := widen(a), widen(b)
	normA := floats.Norm(wa, 2)
	normB := floats.Norm(wb, 2)
	if normA == 0 || normB == 0 {
		return MaxDistance
	}

	similarity := floats.Dot(wa, wb) / (normA * normB)
	// Clamp to [-1, 1] to absorb rounding.
	similarity = max(-1, min(1, similarity))
	return 1 - similarity
}

// Package embeddings provides vector math for fixed-length embeddings: L2 normalization,
// cosine similarity, and fitting vectors to a configured dimensionality.
package embeddings

import (
	"math"
)

// NormalizeL2 scales vector to unit length in place.
// A zero vector is left unchanged.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Magnitude returns the Euclidean length of vector.
func Magnitude(vector []float32) float64 {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	return math.Sqrt(sumSquares)
}

// CosineSimilarity returns dot(a,b) / (|a| * |b|) for equal-length vectors.
// It returns 0 when either magnitude is zero or the lengths differ, so callers never divide by zero.
// The result is clamped to [-1, 1] to absorb floating point drift.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, sumA, sumB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		sumA += x * x
		sumB += y * y
	}

	if sumA == 0 || sumB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(sumA) * math.Sqrt(sumB))

	return math.Max(-1, math.Min(1, sim))
}

// FitDimensions returns a copy of vector truncated or zero-padded to exactly dims entries.
func FitDimensions(vector []float32, dims int) []float32 {
	if dims <= 0 {
		return []float32{}
	}

	out := make([]float32, dims)
	copy(out, vector)

	return out
}

package matching

import (
	"errors"
	"math"
)

// ErrDimensionMismatch indicates two vectors of different lengths were
// compared. This is a provider-contract violation, not a recoverable
// condition.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// CosineSimilarity returns dot(a,b)/(‖a‖·‖b‖) in [-1,1]. A zero vector on
// either side yields 0. Pure and deterministic for identical inputs.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Guard against float drift outside the mathematical range.
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}

	return sim, nil
}

// Clamp01 clamps a similarity to [0,1] for use as a percentage.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// IsZeroVector reports whether every component is zero. Zero vectors stand
// in for blank embedding input and must not be mistaken for real signal.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

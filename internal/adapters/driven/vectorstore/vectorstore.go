// Package vectorstore holds helpers shared by the vector store drivers:
// cosine similarity, metadata filter matching and top-k ranking.
package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// Vectors are not assumed to be normalised. A zero vector scores 0.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MatchesFilter reports whether metadata contains every entry of
// filter. Values compare by their fmt representation so JSON round
// trips (which widen ints to float64) still match.
func MatchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

// RankTopK sorts candidates by descending score and truncates to k.
// The sort is stable, so equal scores keep their ingestion order:
// earlier-ingested documents and lower ordinals win ties.
func RankTopK(candidates []domain.RetrievedChunk, k int) []domain.RetrievedChunk {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// ValidateQuery checks the common search preconditions.
// dimension is the collection's stored dimensionality, zero when the
// collection is empty or unknown.
func ValidateQuery(query []float32, k, dimension int) error {
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	if len(query) == 0 {
		return fmt.Errorf("query vector is empty: %w", domain.ErrInvalidInput)
	}
	if dimension != 0 && len(query) != dimension {
		return fmt.Errorf("query vector has %d dimensions, collection stores %d: %w",
			len(query), dimension, domain.ErrInvalidInput)
	}
	return nil
}

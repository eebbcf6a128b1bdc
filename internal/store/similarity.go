package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/agenthands/reviewgraph/internal/core/model"
)

// CosineSimilarity returns a value in [-1, 1]. Mismatched lengths and zero vectors are errors.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have same length: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vectors must not be empty")
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("vectors must not be zero vectors")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// RankBySimilarity keeps products scoring strictly above threshold, best first,
// at most limit of them. Products whose embedding cannot be compared are skipped.
func RankBySimilarity(query []float32, products []model.Product, threshold float64, limit int) []model.ScoredProduct {
	var out []model.ScoredProduct
	for _, p := range products {
		score, err := CosineSimilarity(query, p.Embedding)
		if err != nil || score <= threshold {
			continue
		}
		p.Embedding = nil
		out = append(out, model.ScoredProduct{Product: p, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

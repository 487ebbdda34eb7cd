package index

import (
	"math"
	"sort"
)

// SearchResult is one ranked segment from a similarity search.
type SearchResult struct {
	Segment Segment
	Score   float32
}

// Search runs an exact top-k cosine similarity search over the corpus.
// Results are ordered by descending score; ties keep ingestion order.
func (c *Corpus) Search(queryEmbedding []float32, k int) []SearchResult {
	if c == nil || len(c.Segments) == 0 || k <= 0 {
		return nil
	}

	results := make([]SearchResult, len(c.Segments))
	for i := range c.Segments {
		results[i] = SearchResult{
			Segment: c.Segments[i],
			Score:   CosineSimilarity(queryEmbedding, c.Embeddings[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 for
// mismatched or zero vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

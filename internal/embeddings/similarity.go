package embeddings

import (
	"cmp"
	"math"
	"slices"
)

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// Scored pairs a vector index with its similarity to the query.
type Scored struct {
	Index int
	Score float32
}

// Rank returns every vector's similarity to query, most similar first.
// Equal scores keep their input order.
func Rank(query []float32, vectors [][]float32) []Scored {
	scores := make([]Scored, len(vectors))
	for i, v := range vectors {
		scores[i] = Scored{Index: i, Score: CosineSimilarity(query, v)}
	}
	slices.SortStableFunc(scores, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scores
}

package retrieval

import (
	"context"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/heliohq/helio/internal/embeddings"
)

// Vector ranks chunks by cosine similarity of their embeddings to the
// query embedding.
type Vector struct {
	chunks   []Chunk
	vectors  [][]float32
	embedder embeddings.Embedder
	fallback Strategy // used when the query itself cannot be embedded
}

// NewVector embeds every chunk. Chunks with identical text share one
// embedding call. Any failure aborts construction so callers can fall
// back to another strategy.
func NewVector(ctx context.Context, chunks []Chunk, embedder embeddings.Embedder, fallback Strategy) (*Vector, error) {
	cache := make(map[[32]byte][]float32)
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		key := blake3.Sum256([]byte(c.Text))
		if v, ok := cache[key]; ok {
			vectors[i] = v
			continue
		}
		v, err := embedder.Generate(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d of %s: %w", c.Ordinal, c.Source, err)
		}
		cache[key] = v
		vectors[i] = v
	}
	return &Vector{chunks: chunks, vectors: vectors, embedder: embedder, fallback: fallback}, nil
}

// Name implements Strategy.
func (v *Vector) Name() string { return "vector" }

// Search implements Strategy. Only chunks with positive similarity are
// returned.
func (v *Vector) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	q, err := v.embedder.Generate(ctx, query)
	if err != nil {
		if v.fallback != nil {
			return v.fallback.Search(ctx, query, k)
		}
		return nil, err
	}

	var out []Chunk
	for _, s := range embeddings.Rank(q, v.vectors) {
		if len(out) == k || s.Score <= 0 {
			break
		}
		out = append(out, v.chunks[s.Index])
	}
	return out, nil
}

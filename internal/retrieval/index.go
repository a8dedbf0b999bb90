// Package retrieval builds the per-run document index used by the
// rag_search tool. An index covers only the documents selected for one
// run, lives in memory, and is discarded when the run ends.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/heliohq/helio/internal/chunker"
	"github.com/heliohq/helio/internal/docs"
	"github.com/heliohq/helio/internal/embeddings"
)

// ErrClosed is returned by queries against a closed index.
var ErrClosed = errors.New("retrieval index is closed")

// ErrNoExtractableText signals that the selected documents produced no
// text at all. It is distinct from a query that matched nothing.
var ErrNoExtractableText = errors.New("no extractable text in the selected documents")

// ScopeError reports a scope that cannot answer queries. It wraps
// ErrNoExtractableText.
type ScopeError struct {
	Sources []string // documents the scope resolved to; may be empty
}

// Error implements the error interface.
func (e *ScopeError) Error() string {
	if len(e.Sources) == 0 {
		return "no documents matched the retrieval scope"
	}
	return fmt.Sprintf("%s (%d document(s) selected)", ErrNoExtractableText, len(e.Sources))
}

// Unwrap supports errors.Is(err, ErrNoExtractableText).
func (e *ScopeError) Unwrap() error { return ErrNoExtractableText }

// Chunk is one span of an in-scope document.
type Chunk struct {
	Source  string
	Title   string
	Ordinal int
	Text    string
}

// Strategy ranks chunks against a query. Implementations return at most
// k chunks, most relevant first, and never return chunks with no
// relevance at all.
type Strategy interface {
	Name() string
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
}

// Result is the answer to one query.
type Result struct {
	Chunks   []Chunk
	Fallback bool // true when Chunks are the leading chunks, not a ranking
}

// DocumentSource is the document library an index reads from.
type DocumentSource interface {
	Expand(paths []string) ([]string, error)
	Load(ctx context.Context, rel string) (docs.Document, error)
}

// BuildInput configures Build.
type BuildInput struct {
	Library  DocumentSource
	Scope    []string
	Chunking chunker.Options
	Embedder embeddings.Embedder // nil selects the lexical strategy
	// FirstNFallback returns the leading chunks in source order when a
	// ranked search finds nothing.
	FirstNFallback bool
	Logger         *slog.Logger
}

// Index is an ephemeral search index over one run's scope.
type Index struct {
	mu       sync.RWMutex
	sources  []string
	chunks   []Chunk
	strategy Strategy
	fallback bool
	closed   bool
}

// Build resolves the scope, chunks every document and selects a search
// strategy. Invalid chunking options fail with *chunker.ConfigurationError
// before any document is read. Documents that yield no text contribute
// no chunks and are not an error.
func Build(ctx context.Context, in BuildInput) (*Index, error) {
	if err := in.Chunking.Validate(); err != nil {
		return nil, err
	}
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "retrieval")

	sources, err := in.Library.Expand(in.Scope)
	if err != nil {
		return nil, fmt.Errorf("expand scope: %w", err)
	}

	idx := &Index{sources: sources, fallback: in.FirstNFallback}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := in.Library.Load(ctx, src)
		if err != nil {
			logger.Warn("document unreadable, skipping", "source", src, "error", err)
			continue
		}
		spans, err := chunker.Split(doc.Text, in.Chunking)
		if err != nil {
			return nil, err
		}
		n := 0
		for span := range spans {
			idx.chunks = append(idx.chunks, Chunk{
				Source:  src,
				Title:   doc.Title,
				Ordinal: span.Ordinal,
				Text:    span.Text,
			})
			n++
		}
		if n == 0 {
			logger.Warn("document has no extractable text", "source", src)
		}
	}

	idx.strategy = selectStrategy(ctx, idx.chunks, in.Embedder, logger)

	logger.Info("retrieval index built",
		"sources", len(sources),
		"chunks", len(idx.chunks),
		"strategy", idx.strategy.Name(),
	)
	return idx, nil
}

func selectStrategy(ctx context.Context, chunks []Chunk, embedder embeddings.Embedder, logger *slog.Logger) Strategy {
	lexical := NewLexical(chunks)
	if embedder == nil || len(chunks) == 0 {
		return lexical
	}
	vec, err := NewVector(ctx, chunks, embedder, lexical)
	if err != nil {
		logger.Warn("embedding backend unavailable, using keyword search", "error", err)
		return lexical
	}
	return vec
}

// Query returns up to topK chunks relevant to text. When ranking finds
// nothing and first-N fallback is enabled, the first topK chunks in
// source order are returned with Result.Fallback set. A scope without
// any text yields a *ScopeError.
func (x *Index) Query(ctx context.Context, text string, topK int) (Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return Result{}, ErrClosed
	}
	if topK < 1 {
		return Result{}, fmt.Errorf("top_k must be at least 1, got %d", topK)
	}
	if len(x.chunks) == 0 {
		return Result{}, &ScopeError{Sources: x.sources}
	}

	found, err := x.strategy.Search(ctx, text, topK)
	if err != nil {
		return Result{}, fmt.Errorf("%s search: %w", x.strategy.Name(), err)
	}
	if len(found) > 0 || !x.fallback {
		return Result{Chunks: found}, nil
	}

	lead := make([]Chunk, min(topK, len(x.chunks)))
	copy(lead, x.chunks)
	return Result{Chunks: lead, Fallback: true}, nil
}

// Sources returns the documents the scope resolved to.
func (x *Index) Sources() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]string(nil), x.sources...)
}

// Len returns the number of chunks in the index.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// Strategy returns the active strategy name.
func (x *Index) Strategy() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.strategy == nil {
		return ""
	}
	return x.strategy.Name()
}

// Close releases chunk text and vectors. It is safe to call more than once.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	x.chunks = nil
	x.strategy = nil
	return nil
}

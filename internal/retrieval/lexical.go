package retrieval

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode"
)

// Lexical ranks chunks by how many distinct query terms they contain.
type Lexical struct {
	chunks []Chunk
	terms  []map[string]struct{}
}

// NewLexical builds the token-set signature of every chunk.
func NewLexical(chunks []Chunk) *Lexical {
	l := &Lexical{chunks: chunks, terms: make([]map[string]struct{}, len(chunks))}
	for i, c := range chunks {
		set := make(map[string]struct{})
		for _, t := range tokenize(c.Text) {
			set[t] = struct{}{}
		}
		l.terms[i] = set
	}
	return l
}

// Name implements Strategy.
func (l *Lexical) Name() string { return "lexical" }

// Search implements Strategy. Ties keep source order.
func (l *Lexical) Search(_ context.Context, query string, k int) ([]Chunk, error) {
	terms := uniqueTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type hit struct {
		idx   int
		score int
	}
	var hits []hit
	for i, set := range l.terms {
		score := 0
		for _, t := range terms {
			if _, ok := set[t]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{idx: i, score: score})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return cmp.Compare(b.score, a.score) })

	out := make([]Chunk, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, l.chunks[h.idx])
	}
	return out, nil
}

// tokenize lowercases s and splits it on anything that is not a letter or
// digit, dropping single-character tokens.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			out = append(out, f)
		}
	}
	return out
}

func uniqueTerms(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tokenize(s) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

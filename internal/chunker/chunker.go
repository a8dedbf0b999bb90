// Package chunker splits document text into overlapping fixed-size spans.
//
// Sizes are measured in runes. A span sequence is lazy and restartable:
// ranging over it twice yields the same spans.
package chunker

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"
)

// Options configures span size and overlap.
type Options struct {
	Size    int // runes per span
	Overlap int // runes shared by consecutive spans
}

// ConfigurationError reports chunking options that cannot produce a
// valid span sequence.
type ConfigurationError struct {
	Size    int
	Overlap int
	Reason  string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid chunking options (size=%d, overlap=%d): %s", e.Size, e.Overlap, e.Reason)
}

// Validate reports whether the options describe a terminating split.
// Invalid options are never clamped.
func (o Options) Validate() error {
	switch {
	case o.Size <= 0:
		return &ConfigurationError{Size: o.Size, Overlap: o.Overlap, Reason: "size must be positive"}
	case o.Overlap < 0:
		return &ConfigurationError{Size: o.Size, Overlap: o.Overlap, Reason: "overlap must not be negative"}
	case o.Overlap >= o.Size:
		return &ConfigurationError{Size: o.Size, Overlap: o.Overlap, Reason: "overlap must be less than size"}
	}
	return nil
}

// Span is one window of the source text.
type Span struct {
	Ordinal int    // zero-based position within the source
	Start   int    // rune offset of the first rune
	End     int    // rune offset one past the last rune
	Text    string // the runes in [Start, End)
}

// Split returns the span sequence for text. Consecutive spans overlap by
// opts.Overlap runes and every span except possibly the last is exactly
// opts.Size runes long. Empty text yields no spans.
func Split(text string, opts Options) (iter.Seq[Span], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return func(yield func(Span) bool) {
		runes := []rune(text)
		n := len(runes)
		step := opts.Size - opts.Overlap

		for ordinal, start := 0, 0; start < n; ordinal, start = ordinal+1, start+step {
			end := min(start+opts.Size, n)
			if !yield(Span{Ordinal: ordinal, Start: start, End: end, Text: string(runes[start:end])}) {
				return
			}
			if end == n {
				return
			}
		}
	}, nil
}

// Count returns the number of spans Split produces for a text of length
// runes: ceil((length-overlap)/(size-overlap)) when length exceeds the
// overlap, one for any shorter non-empty text, and zero for empty text.
func Count(length int, opts Options) int {
	if length <= 0 {
		return 0
	}
	if length <= opts.Size {
		return 1
	}
	step := opts.Size - opts.Overlap
	return (length - opts.Overlap + step - 1) / step
}

// Reassemble joins spans produced with the given overlap back into the
// source text by dropping the shared prefix of every span after the first.
func Reassemble(spans []Span, overlap int) string {
	var b strings.Builder
	for i, s := range spans {
		if i == 0 {
			b.WriteString(s.Text)
			continue
		}
		text := s.Text
		for range overlap {
			_, size := utf8.DecodeRuneInString(text)
			text = text[size:]
		}
		b.WriteString(text)
	}
	return b.String()
}

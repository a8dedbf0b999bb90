package chunker

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"
)

func collect(t *testing.T, text string, opts Options) []Span {
	t.Helper()
	seq, err := Split(text, opts)
	if err != nil {
		t.Fatalf("Split(%d runes, %+v) error: %v", utf8.RuneCountInString(text), opts, err)
	}
	return slices.Collect(seq)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"valid", Options{Size: 10, Overlap: 3}, false},
		{"zero overlap", Options{Size: 10}, false},
		{"zero size", Options{Size: 0}, true},
		{"negative overlap", Options{Size: 10, Overlap: -1}, true},
		{"overlap equals size", Options{Size: 10, Overlap: 10}, true},
		{"overlap exceeds size", Options{Size: 10, Overlap: 11}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("error type = %T, want *ConfigurationError", err)
				}
			}
		})
	}
}

func TestSplit_InvalidOptions(t *testing.T) {
	_, err := Split("hello", Options{Size: 4, Overlap: 4})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Split error = %v, want *ConfigurationError", err)
	}
	if cfgErr.Size != 4 || cfgErr.Overlap != 4 {
		t.Errorf("ConfigurationError = %+v", cfgErr)
	}
}

func TestSplit_Empty(t *testing.T) {
	if spans := collect(t, "", Options{Size: 5, Overlap: 1}); len(spans) != 0 {
		t.Errorf("Split(\"\") produced %d spans, want 0", len(spans))
	}
}

func TestSplit_Windows(t *testing.T) {
	spans := collect(t, "abcdefghij", Options{Size: 4, Overlap: 1})
	want := []string{"abcd", "defg", "ghij"}
	if len(spans) != len(want) {
		t.Fatalf("got %d spans, want %d", len(spans), len(want))
	}
	for i, s := range spans {
		if s.Text != want[i] {
			t.Errorf("span %d = %q, want %q", i, s.Text, want[i])
		}
		if s.Ordinal != i {
			t.Errorf("span %d ordinal = %d", i, s.Ordinal)
		}
	}
}

func TestSplit_Restartable(t *testing.T) {
	seq, err := Split(strings.Repeat("xyz ", 40), Options{Size: 16, Overlap: 5})
	if err != nil {
		t.Fatal(err)
	}
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Error("ranging twice produced different spans")
	}
}

func TestSplit_EarlyBreak(t *testing.T) {
	seq, _ := Split(strings.Repeat("a", 100), Options{Size: 10})
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d spans, want 2", n)
	}
}

func TestSplit_Runes(t *testing.T) {
	spans := collect(t, "héllo wörld", Options{Size: 4, Overlap: 2})
	for i, s := range spans[:len(spans)-1] {
		if got := utf8.RuneCountInString(s.Text); got != 4 {
			t.Errorf("span %d has %d runes, want 4", i, got)
		}
	}
	if got := Reassemble(spans, 2); got != "héllo wörld" {
		t.Errorf("Reassemble = %q", got)
	}
}

// TestSplit_Properties checks the count formula, span lengths, overlap
// and exact reconstruction over a grid of lengths and options.
func TestSplit_Properties(t *testing.T) {
	alphabet := "the quick brown fox jumps over the lazy dog. "
	for _, size := range []int{1, 2, 3, 7, 16, 50} {
		for _, overlap := range []int{0, 1, 2, 6, 15, 49} {
			if overlap >= size {
				continue
			}
			opts := Options{Size: size, Overlap: overlap}
			for _, length := range []int{0, 1, overlap + 1, size - 1, size, size + 1, 2*size + 3, 137} {
				if length < 0 {
					continue
				}
				text := strings.Repeat(alphabet, length/len(alphabet)+1)[:length]
				spans := collect(t, text, opts)

				if got, want := len(spans), Count(length, opts); got != want {
					t.Errorf("size=%d overlap=%d len=%d: %d spans, Count=%d", size, overlap, length, got, want)
				}
				if length > overlap {
					step := size - overlap
					formula := (length - overlap + step - 1) / step
					if len(spans) != formula {
						t.Errorf("size=%d overlap=%d len=%d: %d spans, formula=%d", size, overlap, length, len(spans), formula)
					}
				}
				for i, s := range spans {
					if i < len(spans)-1 && len(s.Text) != size {
						t.Errorf("size=%d overlap=%d len=%d: span %d has length %d", size, overlap, length, i, len(s.Text))
					}
					if i > 0 {
						prev := spans[i-1].Text
						if prev[len(prev)-overlap:] != s.Text[:overlap] {
							t.Errorf("size=%d overlap=%d len=%d: spans %d and %d do not overlap", size, overlap, length, i-1, i)
						}
					}
				}
				if got := Reassemble(spans, overlap); got != text {
					t.Errorf("size=%d overlap=%d len=%d: Reassemble mismatch", size, overlap, length)
				}
			}
		}
	}
}

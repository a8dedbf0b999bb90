// Package notes writes markdown notes produced by the write_note tool.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

// Writer stores notes as markdown files in one directory.
type Writer struct {
	dir string
	mu  sync.Mutex
}

// NewWriter creates a Writer rooted at dir. The directory is created on
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the note directory.
func (w *Writer) Dir() string { return w.dir }

// Write stores content under a filename derived from title and returns
// the file path. Only letters, digits, '-' and '_' survive in the
// filename; an empty result becomes "note". An existing note with the
// same name is replaced.
func (w *Writer) Write(title, content string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create notes dir: %w", err)
	}

	path := filepath.Join(w.dir, SafeName(title)+".md")
	body := fmt.Sprintf("# %s\n\n%s\n", title, content)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}
	return path, nil
}

// SafeName reduces title to a filename stem.
func SafeName(title string) string {
	var b strings.Builder
	for _, r := range title {
		if r < unicode.MaxASCII && (r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "note"
	}
	return b.String()
}

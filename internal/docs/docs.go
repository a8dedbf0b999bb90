// Package docs manages the local document library that retrieval scopes
// are drawn from. Paths handed in and out of this package are relative to
// the library root and always use forward slashes.
package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ErrOutsideRoot is returned when a path escapes the library root.
var ErrOutsideRoot = errors.New("path escapes document root")

// Document is one loaded source.
type Document struct {
	Source string // relative path, the source id used by retrieval
	Title  string // first level-1 markdown heading, if any
	Text   string // extracted text; empty when nothing could be extracted
}

// Entry is one row of a library listing.
type Entry struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// Listing is the library content shown to front ends.
type Listing struct {
	Files   []Entry `json:"files"`
	Folders []Entry `json:"folders"`
}

// Library is a directory of documents filtered by extension.
type Library struct {
	Root              string
	AllowedExtensions []string
	PDF               PDFExtractor
	Logger            *slog.Logger
}

// NewLibrary creates a library rooted at root. Extensions are compared
// case-insensitively and must include the leading dot.
func NewLibrary(root string, extensions []string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		exts = append(exts, strings.ToLower(e))
	}
	return &Library{
		Root:              root,
		AllowedExtensions: exts,
		PDF:               LedongthucPDF{},
		Logger:            logger.With("component", "docs"),
	}
}

func (l *Library) allowed(name string) bool {
	return slices.Contains(l.AllowedExtensions, strings.ToLower(filepath.Ext(name)))
}

// resolve maps a relative library path to an absolute one, rejecting
// anything that would leave the root.
func (l *Library) resolve(rel string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}
	return filepath.Join(l.Root, filepath.FromSlash(clean)), nil
}

// walkFiles returns every allowed file under dir as library-relative paths.
func (l *Library) walkFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !l.allowed(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(l.Root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}

// Expand resolves a set of scope entries into the sorted, de-duplicated
// list of document paths they cover. "." or an empty entry selects every
// document, folders expand recursively, and entries that do not exist or
// have a disallowed extension are skipped.
func (l *Library) Expand(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, raw := range paths {
		rel := strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
		if rel == "" {
			rel = "."
		}
		full, err := l.resolve(rel)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(full)
		if err != nil {
			l.Logger.Debug("scope entry skipped", "path", rel, "error", err)
			continue
		}
		if !info.IsDir() {
			if l.allowed(full) {
				r, _ := filepath.Rel(l.Root, full)
				seen[filepath.ToSlash(r)] = struct{}{}
			}
			continue
		}
		files, err := l.walkFiles(full)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", rel, err)
		}
		for _, f := range files {
			seen[f] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

// List returns every allowed document and every folder. The root is
// always listed first as ".".
func (l *Library) List() (Listing, error) {
	listing := Listing{Folders: []Entry{{Path: ".", Name: "(root: all documents)"}}}
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return listing, err
	}
	err := filepath.WalkDir(l.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == l.Root {
			return nil
		}
		rel, err := filepath.Rel(l.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		switch {
		case d.IsDir():
			listing.Folders = append(listing.Folders, Entry{Path: rel, Name: rel + "/"})
		case l.allowed(d.Name()):
			listing.Files = append(listing.Files, Entry{Path: rel, Name: rel})
		}
		return nil
	})
	return listing, err
}

// Load reads one document. A PDF that yields no text, or fails to parse,
// produces an empty Text rather than an error.
func (l *Library) Load(ctx context.Context, rel string) (Document, error) {
	full, err := l.resolve(rel)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Source: rel}

	switch strings.ToLower(filepath.Ext(full)) {
	case ".pdf":
		extractor := l.PDF
		if extractor == nil {
			extractor = LedongthucPDF{}
		}
		text, err := extractor.Extract(ctx, full)
		if err != nil {
			l.Logger.Warn("pdf text extraction failed", "source", rel, "error", err)
			return doc, nil
		}
		doc.Text = strings.TrimSpace(text)
	default:
		data, err := os.ReadFile(full)
		if err != nil {
			return doc, fmt.Errorf("read %s: %w", rel, err)
		}
		doc.Text = strings.TrimSpace(string(bytes.ToValidUTF8(data, []byte("�"))))
		if strings.EqualFold(filepath.Ext(full), ".md") {
			doc.Title = MarkdownTitle(data)
		}
	}
	return doc, nil
}

// Save writes an uploaded file into the library root under a sanitized
// name and returns its relative path. Names without an allowed extension
// get one appended. Existing files with the same name are overwritten.
func (l *Library) Save(name string, data []byte) (string, error) {
	var b strings.Builder
	for _, r := range filepath.Base(name) {
		if r < 0x80 && (r == '.' || r == '-' || r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')) {
			b.WriteRune(r)
		}
	}
	safe := strings.Trim(b.String(), ".")
	if safe == "" {
		safe = "uploaded"
	}
	if !l.allowed(safe) {
		ext := ".txt"
		if !slices.Contains(l.AllowedExtensions, ext) && len(l.AllowedExtensions) > 0 {
			ext = l.AllowedExtensions[0]
		}
		safe += ext
	}

	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(l.Root, safe), data, 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", safe, err)
	}
	l.Logger.Info("document saved", "path", safe, "bytes", len(data))
	return safe, nil
}

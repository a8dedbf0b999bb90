package docs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newTestLibrary(t *testing.T, files map[string]string) *Library {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewLibrary(root, []string{".md", ".txt", ".PDF"}, nil)
}

type stubPDF struct {
	text string
	err  error
}

func (s stubPDF) Extract(context.Context, string) (string, error) { return s.text, s.err }

func TestExpand(t *testing.T) {
	lib := newTestLibrary(t, map[string]string{
		"a.md":            "# A",
		"notes/b.txt":     "b",
		"notes/deep/c.md": "c",
		"notes/img.png":   "png",
		"other/d.txt":     "d",
	})

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"root", []string{"."}, []string{"a.md", "notes/b.txt", "notes/deep/c.md", "other/d.txt"}},
		{"empty entry is root", []string{""}, []string{"a.md", "notes/b.txt", "notes/deep/c.md", "other/d.txt"}},
		{"single file", []string{"a.md"}, []string{"a.md"}},
		{"folder recursive", []string{"notes"}, []string{"notes/b.txt", "notes/deep/c.md"}},
		{"dedupe", []string{"notes", "notes/b.txt", "a.md", "a.md"}, []string{"a.md", "notes/b.txt", "notes/deep/c.md"}},
		{"missing and disallowed skipped", []string{"nope.md", "notes/img.png"}, []string{}},
		{"backslashes", []string{`notes\deep`}, []string{"notes/deep/c.md"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := lib.Expand(tc.paths)
			if err != nil {
				t.Fatalf("Expand(%v) error: %v", tc.paths, err)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("Expand(%v) = %v, want %v", tc.paths, got, tc.want)
			}
		})
	}
}

func TestExpand_OutsideRoot(t *testing.T) {
	lib := newTestLibrary(t, nil)
	for _, p := range []string{"../secret.md", "/etc/passwd", "a/../../x.md"} {
		if _, err := lib.Expand([]string{p}); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Expand(%q) error = %v, want ErrOutsideRoot", p, err)
		}
	}
}

func TestLoad_Markdown(t *testing.T) {
	lib := newTestLibrary(t, map[string]string{
		"guide.md": "intro line\n\n# The *Guide*\n\nBody text.\n",
	})
	doc, err := lib.Load(t.Context(), "guide.md")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if doc.Source != "guide.md" {
		t.Errorf("Source = %q", doc.Source)
	}
	if doc.Title != "The Guide" {
		t.Errorf("Title = %q, want %q", doc.Title, "The Guide")
	}
	if doc.Text == "" {
		t.Error("Text should not be empty")
	}
}

func TestLoad_PDF(t *testing.T) {
	lib := newTestLibrary(t, map[string]string{"scan.pdf": "%PDF-1.4"})

	lib.PDF = stubPDF{text: "  extracted words \n"}
	doc, err := lib.Load(t.Context(), "scan.pdf")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if doc.Text != "extracted words" {
		t.Errorf("Text = %q", doc.Text)
	}

	lib.PDF = stubPDF{err: errors.New("malformed xref")}
	doc, err = lib.Load(t.Context(), "scan.pdf")
	if err != nil {
		t.Fatalf("extraction failure should not be an error, got %v", err)
	}
	if doc.Text != "" {
		t.Errorf("Text = %q, want empty", doc.Text)
	}
}

func TestList(t *testing.T) {
	lib := newTestLibrary(t, map[string]string{
		"a.md":        "a",
		"sub/b.txt":   "b",
		"sub/skip.go": "package x",
	})
	listing, err := lib.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(listing.Folders) != 2 || listing.Folders[0].Path != "." || listing.Folders[1].Path != "sub" {
		t.Errorf("Folders = %+v", listing.Folders)
	}
	var files []string
	for _, f := range listing.Files {
		files = append(files, f.Path)
	}
	if !slices.Equal(files, []string{"a.md", "sub/b.txt"}) {
		t.Errorf("Files = %v", files)
	}
}

func TestSave(t *testing.T) {
	lib := newTestLibrary(t, nil)

	tests := []struct {
		name string
		want string
	}{
		{"report.md", "report.md"},
		{"my report (v2).txt", "myreportv2.txt"},
		{"../../escape.md", "escape.md"},
		{"data.csv", "data.csv.txt"},
		{"???", "uploaded.txt"},
	}
	for _, tc := range tests {
		got, err := lib.Save(tc.name, []byte("content"))
		if err != nil {
			t.Fatalf("Save(%q) error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("Save(%q) = %q, want %q", tc.name, got, tc.want)
		}
		if _, err := os.Stat(filepath.Join(lib.Root, got)); err != nil {
			t.Errorf("saved file missing: %v", err)
		}
	}
}

func TestMarkdownTitle(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"# Hello\n", "Hello"},
		{"## Sub\n\n# Main\n", "Main"},
		{"no heading here", ""},
		{"# Multi\nline paragraph\n", "Multi"},
	}
	for _, tc := range tests {
		if got := MarkdownTitle([]byte(tc.src)); got != tc.want {
			t.Errorf("MarkdownTitle(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

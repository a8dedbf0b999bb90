package docs

import (
	"bytes"
	"context"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor turns a PDF file into plain text.
type PDFExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// LedongthucPDF extracts text with github.com/ledongthuc/pdf. Image-only
// PDFs produce empty text.
type LedongthucPDF struct{}

// Extract implements PDFExtractor.
func (LedongthucPDF) Extract(_ context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

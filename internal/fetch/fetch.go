// Package fetch provides web page fetching and content extraction for
// the web_fetch tool. It downloads a URL's HTML and extracts readable
// text, stripping navigation, scripts and other boilerplate.
package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/heliohq/helio/internal/httpkit"
)

// DefaultTimeout is the HTTP request timeout for fetching pages.
const DefaultTimeout = 10 * time.Second

// DefaultMaxBytes is the maximum response body size (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// DefaultMaxChars is the default character limit for extracted text.
const DefaultMaxChars = 8000

// maxRedirects caps redirects followed for one page.
const maxRedirects = 5

// InsecureNotice prefixes content fetched after certificate
// verification was disabled.
const InsecureNotice = "[SSL verification disabled; system CA store unavailable.]"

// Result holds the fetched and extracted content from a URL.
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
	Insecure    bool   `json:"insecure,omitempty"`
	Length      int    `json:"length"`
	StatusCode  int    `json:"status_code"`
}

// Text renders the result for a model context.
func (r *Result) Text() string {
	var b strings.Builder
	if r.Insecure {
		b.WriteString(InsecureNotice)
		b.WriteString("\n\n")
	}
	if r.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", r.Title)
	}
	b.WriteString(r.Content)
	if r.Truncated {
		b.WriteString("\n\n[truncated]")
	}
	return b.String()
}

// Options configures a Fetcher.
type Options struct {
	Timeout  time.Duration
	MaxChars int
	Logger   *slog.Logger
}

// Fetcher downloads and extracts readable content from web pages.
type Fetcher struct {
	client   *http.Client
	insecure *http.Client
	maxBytes int64
	maxChars int
	logger   *slog.Logger
}

// New creates a Fetcher. Zero options use the package defaults.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{
		client:   httpkit.NewClient(pageOpts(opts.Timeout)...),
		insecure: httpkit.NewClient(append(pageOpts(opts.Timeout), httpkit.WithTLSInsecureSkipVerify())...),
		maxBytes: DefaultMaxBytes,
		maxChars: opts.MaxChars,
		logger:   opts.Logger.With("component", "fetch"),
	}
}

func pageOpts(timeout time.Duration) []httpkit.ClientOption {
	return []httpkit.ClientOption{
		httpkit.WithTimeout(timeout),
		httpkit.WithResponseHeaderTimeout(15 * time.Second),
		httpkit.WithMaxRedirects(maxRedirects),
	}
}

// MaxChars returns the configured output ceiling.
func (f *Fetcher) MaxChars() int { return f.maxChars }

// Fetch downloads the URL and extracts readable text content. maxChars
// limits the output length; 0 or anything above the configured ceiling
// uses the ceiling. When the server certificate cannot be verified the
// request is retried once without verification and the result is
// marked Insecure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxChars int) (*Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("web_fetch: url is required")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	if maxChars <= 0 || maxChars > f.maxChars {
		maxChars = f.maxChars
	}

	res, err := f.do(ctx, f.client, rawURL, maxChars)
	if err != nil && isCertificateError(err) {
		f.logger.Warn("certificate verification failed, retrying without verification",
			"url", rawURL, "error", err)
		res, err = f.do(ctx, f.insecure, rawURL, maxChars)
		if res != nil {
			res.Insecure = true
		}
	}
	return res, err
}

func (f *Fetcher) do(ctx context.Context, client *http.Client, rawURL string, maxChars int) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("web_fetch: invalid url: %w", err)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web_fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body := httpkit.ReadErrorBody(resp.Body, 256)
		return nil, fmt.Errorf("web_fetch: %s returned status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("web_fetch: failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")

	var title, content string
	switch {
	case isHTML(contentType):
		title, content = extractHTML(string(body))
	case isPlainText(contentType), utf8.Valid(body):
		content = string(body)
	default:
		return &Result{
			URL:         rawURL,
			ContentType: contentType,
			StatusCode:  resp.StatusCode,
			Content:     fmt.Sprintf("Binary content (%s), %d bytes", contentType, len(body)),
			Length:      len(body),
		}, nil
	}

	truncated := false
	if utf8.RuneCountInString(content) > maxChars {
		content = truncateUTF8(content, maxChars)
		truncated = true
	}

	return &Result{
		URL:         rawURL,
		Title:       title,
		Content:     content,
		ContentType: contentType,
		Truncated:   truncated,
		Length:      len(content),
		StatusCode:  resp.StatusCode,
	}, nil
}

func isCertificateError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	var verify *tls.CertificateVerificationError
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verify)
}

func isHTML(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func isPlainText(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "text/plain")
}

// truncateUTF8 cuts s to at most maxChars runes.
func truncateUTF8(s string, maxChars int) string {
	count := 0
	for i := range s {
		if count >= maxChars {
			return s[:i]
		}
		count++
	}
	return s
}

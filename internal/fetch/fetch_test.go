package fetch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractHTML(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title> Test Page </title></head>
<body>
<nav>Navigation stuff</nav>
<script>var x = 1;</script>
<style>.foo { color: red; }</style>
<main>
<h1>Hello World</h1>
<p>This is a test paragraph with <strong>bold text</strong>.</p>
<ul><li>one</li><li>two</li></ul>
</main>
<footer>Footer stuff</footer>
</body>
</html>`

	title, content := extractHTML(page)

	if title != "Test Page" {
		t.Errorf("title = %q, want %q", title, "Test Page")
	}
	for _, want := range []string{"Hello World", "bold text", "one", "two"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q: %q", want, content)
		}
	}
	for _, unwanted := range []string{"var x = 1", "Navigation stuff", "Footer stuff", "color: red"} {
		if strings.Contains(content, unwanted) {
			t.Errorf("content should not contain %q", unwanted)
		}
	}
}

func TestExtractHTML_Markdown(t *testing.T) {
	page := `<html><head><meta property="og:title" content="OG  Title"></head><body>
<h2>Pricing</h2><p>Plans start at $5.</p>
<ol><li>Basic</li><li>Pro</li></ol>
<pre>a  b
c</pre>
<aside>related links</aside>
</body></html>`

	title, content := extractHTML(page)
	if title != "OG Title" {
		t.Errorf("title = %q, want og:title fallback", title)
	}
	for _, want := range []string{"## Pricing", "- Basic", "- Pro", "Plans start at $5."} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "related links") {
		t.Errorf("aside should be dropped:\n%s", content)
	}
}

func TestFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "Helio/") {
			t.Errorf("expected Helio User-Agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Test</title></head><body><p>Hello from test server</p></body></html>`))
	}))
	defer ts.Close()

	result, err := New(Options{}).Fetch(t.Context(), ts.URL, 0)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Title != "Test" {
		t.Errorf("title = %q", result.Title)
	}
	if !strings.Contains(result.Content, "Hello from test server") {
		t.Errorf("content = %q", result.Content)
	}
	if result.StatusCode != http.StatusOK || result.Insecure {
		t.Errorf("result = %+v", result)
	}
	if text := result.Text(); !strings.HasPrefix(text, "Title: Test\n\n") {
		t.Errorf("Text() = %q", text)
	}
}

func TestFetch_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := New(Options{}).Fetch(t.Context(), ts.URL, 0)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("Fetch error = %v, want status 404", err)
	}
}

func TestFetch_CertificateFallback(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("self-signed content"))
	}))
	defer ts.Close()

	result, err := New(Options{}).Fetch(t.Context(), ts.URL, 0)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !result.Insecure {
		t.Error("expected Insecure after certificate failure")
	}
	if !strings.HasPrefix(result.Text(), InsecureNotice) {
		t.Errorf("Text() = %q, want insecure notice prefix", result.Text())
	}
}

func TestFetch_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	if _, err := New(Options{Timeout: 50 * time.Millisecond}).Fetch(t.Context(), ts.URL, 0); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestFetchPlainText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Just plain text content"))
	}))
	defer ts.Close()

	result, err := New(Options{}).Fetch(t.Context(), ts.URL, 0)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Content != "Just plain text content" {
		t.Errorf("content = %q", result.Content)
	}
}

func TestFetchTruncation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer ts.Close()

	f := New(Options{MaxChars: 300})

	tests := []struct {
		maxChars int
		want     int
	}{
		{100, 100},
		{0, 300},
		{5000, 300},
	}
	for _, tc := range tests {
		result, err := f.Fetch(t.Context(), ts.URL, tc.maxChars)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !result.Truncated || result.Length != tc.want {
			t.Errorf("maxChars=%d: truncated=%v length=%d, want %d", tc.maxChars, result.Truncated, result.Length, tc.want)
		}
	}
}

func TestFetchEmptyURL(t *testing.T) {
	if _, err := New(Options{}).Fetch(t.Context(), "  ", 0); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestCleanWhitespace(t *testing.T) {
	got := cleanWhitespace("  Hello   world  \n\n\n\n  Second line  \n\n\n Third  ")
	if got != "Hello world\n\nSecond line\n\nThird" {
		t.Errorf("cleanWhitespace = %q", got)
	}
}

func TestTruncateUTF8(t *testing.T) {
	if got := truncateUTF8("Héllo wörld café", 5); got != "Héllo" {
		t.Errorf("truncateUTF8 = %q, want %q", got, "Héllo")
	}
}

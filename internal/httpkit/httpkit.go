// Package httpkit builds the HTTP clients Helio uses for outbound calls:
// model providers, embedding backends, and the web_fetch tool. Every
// client has dial and TLS timeouts and a Helio User-Agent.
package httpkit

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/heliohq/helio/internal/buildinfo"
)

// Transport defaults. Response header waits are unbounded unless a
// client asks for one: a model generating a long answer without
// streaming sends its headers last.
const (
	DialTimeout         = 10 * time.Second
	TLSHandshakeTimeout = 10 * time.Second
	IdleConnTimeout     = 90 * time.Second
	MaxIdleConnsPerHost = 4

	defaultTimeout = 30 * time.Second
)

// ClientOption configures NewClient.
type ClientOption func(*settings)

type settings struct {
	timeout       time.Duration
	headerTimeout time.Duration
	userAgent     string
	transport     *http.Transport
	insecure      bool
	maxRedirects  int // < 0 keeps net/http's default of 10
}

// WithTimeout bounds each request end to end. Zero leaves only the
// caller's context deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(s *settings) { s.timeout = d }
}

// WithResponseHeaderTimeout bounds the wait for response headers.
func WithResponseHeaderTimeout(d time.Duration) ClientOption {
	return func(s *settings) { s.headerTimeout = d }
}

// WithUserAgent replaces the Helio User-Agent.
func WithUserAgent(ua string) ClientOption {
	return func(s *settings) { s.userAgent = ua }
}

// WithTransport supplies the base transport. NewClient clones it, so the
// caller's value is never modified.
func WithTransport(t *http.Transport) ClientOption {
	return func(s *settings) { s.transport = t }
}

// WithTLSInsecureSkipVerify disables certificate checks. web_fetch uses
// it only to retry a request that failed verification.
func WithTLSInsecureSkipVerify() ClientOption {
	return func(s *settings) { s.insecure = true }
}

// WithMaxRedirects caps followed redirects; 0 refuses all of them.
func WithMaxRedirects(n int) ClientOption {
	return func(s *settings) { s.maxRedirects = n }
}

// NewTransport returns a transport with Helio's dial and pool limits.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout: TLSHandshakeTimeout,
		IdleConnTimeout:     IdleConnTimeout,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		ForceAttemptHTTP2:   true,
	}
}

// ErrTooManyRedirects is returned when a client built WithMaxRedirects
// exceeds its cap.
var ErrTooManyRedirects = errors.New("too many redirects")

// NewClient builds a client from opts. The default timeout is 30s.
func NewClient(opts ...ClientOption) *http.Client {
	s := settings{timeout: defaultTimeout, userAgent: buildinfo.UserAgent(), maxRedirects: -1}
	for _, o := range opts {
		o(&s)
	}

	var t *http.Transport
	if s.transport != nil {
		t = s.transport.Clone()
	} else {
		t = NewTransport()
	}
	if s.headerTimeout > 0 {
		t.ResponseHeaderTimeout = s.headerTimeout
	}
	if s.insecure {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{}
		}
		t.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // explicit opt-in
	}

	c := &http.Client{
		Timeout:   s.timeout,
		Transport: userAgent{next: t, value: s.userAgent},
	}
	if limit := s.maxRedirects; limit >= 0 {
		c.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) > limit {
				return fmt.Errorf("after %d: %w", limit, ErrTooManyRedirects)
			}
			return nil
		}
	}
	return c
}

// userAgent sets the User-Agent on requests that carry none.
type userAgent struct {
	next  http.RoundTripper
	value string
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", u.value)
	return u.next.RoundTrip(r)
}

// ReadErrorBody returns at most limit bytes of an error response body,
// trimmed, and closes it. A nil body yields "".
func ReadErrorBody(rc io.ReadCloser, limit int64) string {
	if rc == nil {
		return ""
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return fmt.Sprintf("(unreadable error body: %v)", err)
	}
	// A short drain lets the connection be reused.
	io.CopyN(io.Discard, rc, 4096)
	return string(bytes.TrimSpace(b))
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Defaults for URLExtractor.
const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 5 << 20
)

// ErrNoText is returned when a page or file has nothing readable.
var ErrNoText = errors.New("no readable text found")

// URLExtractor fetches web pages and returns their body text.
type URLExtractor struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// URLOption configures a URLExtractor.
type URLOption func(*urlConfig)

type urlConfig struct {
	timeout      time.Duration
	maxBytes     int64
	userAgent    string
	allowPrivate bool
}

// WithTimeout bounds the whole request.
func WithTimeout(d time.Duration) URLOption {
	return func(c *urlConfig) { c.timeout = d }
}

// WithMaxBytes limits how much of the body is read.
func WithMaxBytes(n int64) URLOption {
	return func(c *urlConfig) { c.maxBytes = n }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) URLOption {
	return func(c *urlConfig) { c.userAgent = ua }
}

// AllowPrivate disables the private address check. Use only for trusted
// setups and tests.
func AllowPrivate() URLOption {
	return func(c *urlConfig) { c.allowPrivate = true }
}

// NewURLExtractor creates an extractor. By default it refuses to connect to
// loopback, private and reserved addresses.
func NewURLExtractor(opts ...URLOption) *URLExtractor {
	cfg := urlConfig{
		timeout:   DefaultTimeout,
		maxBytes:  DefaultMaxBytes,
		userAgent: "clipspeak",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if !cfg.allowPrivate {
		dialer.Control = dialControl
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        4,
		IdleConnTimeout:     30 * time.Second,
	}

	return &URLExtractor{
		client: &http.Client{
			Timeout:   cfg.timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("stopped after 5 redirects")
				}
				_, err := ValidateURL(req.URL.String())
				return err
			},
		},
		maxBytes:  cfg.maxBytes,
		userAgent: cfg.userAgent,
	}
}

// Extract downloads rawURL and returns its readable text. HTML pages yield
// their body text; plain text responses are returned with whitespace
// collapsed.
func (e *URLExtractor) Extract(ctx context.Context, rawURL string) (string, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", u.Host, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetching %s: unexpected status %s", u.Host, resp.Status)
	}

	body := io.LimitReader(resp.Body, e.maxBytes)
	var text string
	if isPlainText(resp.Header.Get("Content-Type")) {
		b, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", u.Host, err)
		}
		text = collapse(string(b))
	} else {
		text, err = HTMLText(body)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", u.Host, err)
		}
	}

	if text == "" {
		return "", ErrNoText
	}
	log.Debug("Extracted page text",
		"host", u.Host,
		"chars", humanize.Comma(int64(len(text))),
		"took", time.Since(start).Round(time.Millisecond))
	return text, nil
}

func isPlainText(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/plain"
}

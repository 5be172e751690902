// Package pagetitle looks up page titles for URLs, best-effort. It guards
// against SSRF: only public http(s) hosts are fetched, and every failure
// falls back to the URL itself rather than an error.
package pagetitle

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Fetcher retrieves a title for a URL. Implementations never hard-fail: a
// title lookup that cannot complete returns the URL itself.
type Fetcher interface {
	FetchTitle(ctx context.Context, rawURL string) string
}

// HTTPFetcher fetches pages over HTTP with a bounded timeout.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPFetcher builds a fetcher with the given per-lookup timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

const maxBodyBytes = 512 * 1024

// FetchTitle returns the page's <title>, or the URL on any failure.
func (f *HTTPFetcher) FetchTitle(ctx context.Context, rawURL string) string {
	if !IsSafeURL(rawURL) {
		return rawURL
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	req.Header.Set("User-Agent", "Jotflow/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rawURL
	}

	title := extractTitle(resp)
	if title == "" {
		return rawURL
	}
	return CleanTitle(title)
}

func extractTitle(resp *http.Response) string {
	tokenizer := html.NewTokenizer(io.LimitReader(resp.Body, maxBodyBytes))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(tokenizer.Token().Data)
				}
				return ""
			}
		}
	}
}

// CleanTitle strips site-name suffixes commonly appended to page titles.
func CleanTitle(title string) string {
	for _, suffix := range []string{" - YouTube", " | Twitter", " | X", " - Wikipedia"} {
		title = strings.TrimSuffix(title, suffix)
	}
	return strings.TrimSpace(title)
}

// IsSafeURL reports whether the URL may be fetched: http(s) only, and never
// loopback, private, link-local, or internal-looking hosts.
func IsSafeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if host == "" || host == "localhost" {
		return false
	}
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return false
		}
	}
	return true
}

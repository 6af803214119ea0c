// Package fetcher retrieves IPO pages and API payloads. Page fetchers
// implement Fetcher; the listing and GMP APIs have dedicated clients.
package fetcher

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls fetching behavior.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load
	Headers         map[string]string
}

// Content is a fetched page.
type Content struct {
	URL         string
	FinalURL    string // after redirects
	HTML        string
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// OK reports whether the page was served with a 2xx status.
func (c Content) OK() bool {
	return c.StatusCode >= 200 && c.StatusCode < 300
}

// Error types for distinguishing failure reasons.
var (
	// ErrStatus indicates a non-success HTTP status that is not retried.
	ErrStatus = errors.New("unexpected status")
	// ErrRateLimited indicates the server kept throttling the client.
	ErrRateLimited = errors.New("rate limited")
	// ErrRetriesExhausted indicates the retry ceiling was reached.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrNoIPOID indicates no numeric IPO id could be found in a GMP page URL.
	ErrNoIPOID = errors.New("no ipo id in url")
	// ErrUnexpectedPayload indicates a response that was neither data nor a retryable error.
	ErrUnexpectedPayload = errors.New("unexpected payload")
	// ErrChallenge indicates a bot-check page was served instead of content.
	ErrChallenge = errors.New("challenge page")
)

// DetectChallenge names the bot check a page represents, or returns "" for
// an ordinary page.
func DetectChallenge(title, html string) string {
	title = strings.ToLower(title)
	html = strings.ToLower(html)
	switch {
	case strings.Contains(title, "just a moment"),
		strings.Contains(title, "attention required"),
		strings.Contains(html, "cf_chl_opt"),
		strings.Contains(html, "challenges.cloudflare.com/turnstile"):
		return "cloudflare"
	case strings.Contains(html, "hcaptcha.com"), strings.Contains(html, "g-recaptcha"):
		return "captcha"
	case strings.Contains(title, "access denied"):
		return "access-denied"
	}
	return ""
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

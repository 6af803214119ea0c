package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/ipoetl/internal/logger"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// StaticFetcher uses Colly for plain HTTP page fetching.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultStaticConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultStaticConfig().Timeout
	}
	return &StaticFetcher{config: cfg}
}

// Fetch retrieves a page. Non-2xx responses are returned with ErrStatus.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	logger.DebugContext(ctx, "static fetch starting", "url", targetURL)

	result := Content{
		URL:       targetURL,
		FinalURL:  targetURL,
		FetchedAt: time.Now(),
	}

	c := colly.NewCollector(
		colly.UserAgent(coalesce(opts.UserAgent, f.config.UserAgent)),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	c.SetRequestTimeout(timeout)

	if len(opts.Headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range opts.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.FinalURL = r.Request.URL.String()
		result.HTML = string(r.Body)
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", result.ContentType,
			"body_size", len(r.Body))
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		return result, fmt.Errorf("failed to visit %s: %w", targetURL, err)
	}
	if fetchErr != nil {
		if result.StatusCode != 0 {
			return result, fmt.Errorf("%w: %d from %s", ErrStatus, result.StatusCode, targetURL)
		}
		return result, fmt.Errorf("fetch error: %w", fetchErr)
	}

	if result.HTML != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML)); err == nil {
			result.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}
	if kind := DetectChallenge(result.Title, result.HTML); kind != "" {
		return result, fmt.Errorf("%w: %s at %s", ErrChallenge, kind, targetURL)
	}

	logger.DebugContext(ctx, "static fetch complete", "url", targetURL, "status", result.StatusCode)
	return result, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}

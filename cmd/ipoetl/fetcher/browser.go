// Package fetcher provides the headless Chrome page fetcher used by the CLI
// for pages that only render their tables after scripts run.
package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/pkg/fetcher"
)

// Config holds configuration for the browser fetcher.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Settle is waited after the page is ready so late XHR content lands.
	Settle time.Duration
	// ChromePath overrides the Chrome binary lookup.
	ChromePath string
}

// DefaultConfig waits four seconds after load, matching how long the GMP
// widgets take to fill in.
func DefaultConfig() Config {
	return Config{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36",
		Timeout:   60 * time.Second,
		Settle:    4 * time.Second,
	}
}

// BrowserFetcher renders pages in one shared headless Chrome, one tab per
// fetch.
type BrowserFetcher struct {
	config   Config
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewBrowserFetcher starts the browser allocator. Chrome itself is launched
// lazily by the first fetch.
func NewBrowserFetcher(cfg Config) (*BrowserFetcher, error) {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	path := cfg.ChromePath
	if path == "" {
		path = FindChromePath()
	}
	if path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	logger.Debug("browser fetcher created", "chrome", path, "timeout", cfg.Timeout, "settle", cfg.Settle)
	return &BrowserFetcher{config: cfg, allocCtx: allocCtx, cancel: cancel}, nil
}

// Fetch navigates to targetURL and returns the rendered document.
func (f *BrowserFetcher) Fetch(ctx context.Context, targetURL string, opts fetcher.Options) (fetcher.Content, error) {
	result := fetcher.Content{URL: targetURL, FinalURL: targetURL, FetchedAt: time.Now()}

	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelTab()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	runCtx, cancelRun := context.WithTimeout(tabCtx, timeout)
	defer cancelRun()
	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	var html, title, location string
	if err := chromedp.Run(runCtx, f.actions(targetURL, opts, &html, &title, &location)...); err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, fmt.Errorf("browser fetch %s: %w", targetURL, err)
	}

	result.HTML = html
	result.Title = strings.TrimSpace(title)
	result.StatusCode = 200
	if location != "" {
		result.FinalURL = location
	}
	if result.Title == "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			result.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}
	if kind := fetcher.DetectChallenge(result.Title, html); kind != "" {
		logger.WarnContext(ctx, "challenge page served", "url", targetURL, "type", kind)
		return result, fmt.Errorf("%w: %s at %s", fetcher.ErrChallenge, kind, targetURL)
	}

	logger.DebugContext(ctx, "browser fetch complete", "url", targetURL, "final_url", result.FinalURL, "bytes", len(html))
	return result, nil
}

func (f *BrowserFetcher) actions(targetURL string, opts fetcher.Options, html, title, location *string) []chromedp.Action {
	var actions []chromedp.Action
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}

	wait := opts.WaitForSelector
	if wait == "" {
		wait = "body"
	}
	settle := opts.WaitDuration
	if settle == 0 {
		settle = f.config.Settle
	}

	actions = append(actions, chromedp.Navigate(targetURL), chromedp.WaitReady(wait))
	if settle > 0 {
		actions = append(actions, chromedp.Sleep(settle))
	}
	return append(actions,
		chromedp.Location(location),
		chromedp.Title(title),
		chromedp.OuterHTML("html", html),
	)
}

// Close shuts the browser down.
func (f *BrowserFetcher) Close() error {
	if f.cancel != nil {
		f.cancel()
	}
	return nil
}

// Type returns the fetcher type.
func (f *BrowserFetcher) Type() string {
	return "dynamic"
}

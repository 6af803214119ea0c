package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/jmylchreest/ipoetl/internal/logger"
)

// DefaultGMPAPIBase is the investorgain GMP endpoint; the IPO id and a
// "true" flag are appended as path segments.
const DefaultGMPAPIBase = "https://webnodejs.investorgain.com/cloud/ipo/ipo-gmp-read"

const gmpOrigin = "https://www.investorgain.com"

// GMPConfig configures the GMP API client.
type GMPConfig struct {
	ClientConfig
	APIBase     string
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultGMPConfig returns the production settings: six retries with
// exponential backoff from 1s to 30s and calls spaced 400ms apart.
func DefaultGMPConfig() GMPConfig {
	return GMPConfig{
		ClientConfig: ClientConfig{
			UserAgent:   defaultUserAgent,
			Timeout:     60 * time.Second,
			MinInterval: 400 * time.Millisecond,
		},
		APIBase:     DefaultGMPAPIBase,
		MaxRetries:  6,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// GMPClient fetches the day-wise GMP table of an IPO from the investorgain
// API. It implements Fetcher so a GMP section can be downloaded like any
// other page.
type GMPClient struct {
	http   *resty.Client
	config GMPConfig
	now    func() time.Time
}

// NewGMPClient creates a GMP client. Zero fields of cfg take defaults.
func NewGMPClient(cfg GMPConfig) (*GMPClient, error) {
	def := DefaultGMPConfig()
	if cfg.APIBase == "" {
		cfg.APIBase = def.APIBase
	}
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	client, err := newRestyClient(cfg.ClientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmp client: %w", err)
	}
	return &GMPClient{http: client, config: cfg, now: time.Now}, nil
}

// Fetch resolves pageURL, reads the IPO id from where it lands and returns
// the GMP table HTML as the page content.
func (c *GMPClient) Fetch(ctx context.Context, pageURL string, _ Options) (Content, error) {
	result := Content{URL: pageURL, FinalURL: pageURL, FetchedAt: c.now()}

	resp, err := c.http.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return result, fmt.Errorf("failed to resolve %s: %w", pageURL, err)
	}
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		result.FinalURL = resp.RawResponse.Request.URL.String()
	}

	id, err := IPOIDFromURL(result.FinalURL)
	if err != nil {
		id, err = IPOIDFromURL(pageURL)
		if err != nil {
			return result, err
		}
	}

	referer := pageURL
	if strings.Contains(result.FinalURL, "investorgain.com") {
		referer = result.FinalURL
	}

	html, err := c.FetchTable(ctx, id, referer)
	if err != nil {
		return result, err
	}
	result.HTML = html
	result.StatusCode = http.StatusOK
	return result, nil
}

// FetchTable calls the GMP API for one IPO id and returns its ipoGmpTable
// payload. Throttling responses, server errors and error-shaped JSON are
// retried with exponential backoff, honouring Retry-After; anything else
// fails at once.
func (c *GMPClient) FetchTable(ctx context.Context, id, referer string) (string, error) {
	apiURL := fmt.Sprintf("%s/%s/true?v=%s", strings.TrimRight(c.config.APIBase, "/"), url.PathEscape(id), c.now().Format("15-04"))
	headers := map[string]string{
		"accept":  "application/json, text/plain, */*",
		"origin":  gmpOrigin,
		"referer": referer,
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.config.BaseBackoff
	exp.MaxInterval = c.config.MaxBackoff
	exp.RandomizationFactor = 0.3
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	hinted := &retryAfterBackOff{BackOff: exp}
	policy := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(c.config.MaxRetries)), ctx)

	var table string
	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.http.R().SetContext(ctx).SetHeaders(headers).Get(apiURL)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return &retryable{err: err}
		}
		t, err := gmpPayload(resp)
		if err != nil {
			var r *retryable
			if errors.As(err, &r) {
				hinted.hint = retryAfter(resp.Header().Get("Retry-After"), c.now())
			}
			return err
		}
		table = t
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("gmp api retrying", "url", apiURL, "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		var r *retryable
		if errors.As(err, &r) {
			return "", fmt.Errorf("gmp api %s: %w after %d attempts: %w", apiURL, ErrRetriesExhausted, attempt, r.err)
		}
		return "", fmt.Errorf("gmp api %s: %w", apiURL, err)
	}
	return table, nil
}

// gmpPayload classifies one API response.
func gmpPayload(resp *resty.Response) (string, error) {
	status := resp.StatusCode()

	var data map[string]json.RawMessage
	parsed := json.Unmarshal(resp.Body(), &data) == nil && data != nil

	if resp.IsSuccess() && parsed {
		if raw, ok := data["ipoGmpTable"]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return s, nil
			}
			return string(raw), nil
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return "", &retryable{err: fmt.Errorf("%w: status %d", ErrRateLimited, status)}
	case status >= 500 && status <= 599:
		return "", &retryable{err: fmt.Errorf("%w: %d", ErrStatus, status)}
	}
	if parsed {
		_, hasErr := data["error"]
		_, hasMsg := data["msg"]
		if resp.IsSuccess() && hasErr && hasMsg {
			return "", &retryable{err: fmt.Errorf("%w: api error %s", ErrUnexpectedPayload, data["error"])}
		}
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		return "", backoff.Permanent(fmt.Errorf("%w: status %d, keys %v", ErrUnexpectedPayload, status, keys))
	}
	return "", backoff.Permanent(fmt.Errorf("%w: status %d with non-JSON body", ErrStatus, status))
}

// retryable marks an attempt that may succeed when repeated.
type retryable struct{ err error }

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

// retryAfterBackOff substitutes a server-provided delay for the next
// computed interval while still advancing the exponential schedule.
type retryAfterBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if b.hint > 0 && next != backoff.Stop {
		next = b.hint
	}
	b.hint = 0
	return next
}

func (b *retryAfterBackOff) Reset() {
	b.hint = 0
	b.BackOff.Reset()
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date. It returns 0 when the header is absent or unusable.
func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

var trailingDigits = regexp.MustCompile(`(\d+)/?$`)

// IPOIDFromURL returns the last all-digit path segment of u, or a trailing
// run of digits in its path.
func IPOIDFromURL(u string) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoIPOID, err)
	}
	path := parsed.Path
	if unescaped, err := url.PathUnescape(parsed.EscapedPath()); err == nil {
		path = unescaped
	}

	segs := strings.Split(path, "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if isDigits(segs[i]) {
			return segs[i], nil
		}
	}
	if m := trailingDigits.FindStringSubmatch(path); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoIPOID, u)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Close releases resources.
func (c *GMPClient) Close() error {
	return nil
}

// Type returns the fetcher type.
func (c *GMPClient) Type() string {
	return "gmp-api"
}

package fetcher

import (
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ClientConfig configures the HTTP clients used for the JSON APIs.
type ClientConfig struct {
	UserAgent string
	Timeout   time.Duration
	// MinInterval is the minimum gap between two requests of one client.
	MinInterval time.Duration
}

// newRestyClient builds a cookie-keeping client whose requests are spaced
// by a token bucket.
func newRestyClient(cfg ClientConfig) (*resty.Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", coalesce(cfg.UserAgent, defaultUserAgent))
	client.SetTimeout(cfg.Timeout)

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	limiter := rate.NewLimiter(limit, 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	return client, nil
}

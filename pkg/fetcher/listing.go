package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// defaultPageLength is the page size assumed when the request parameters
// do not carry one.
const defaultPageLength = 10

// ListingRequest describes one paginated listing endpoint.
type ListingRequest struct {
	PageURL string            // HTML page that issues the session cookies
	APIURL  string            // JSON endpoint
	Params  map[string]string // base query parameters
	Pages   int
	Fields  []string // fields kept from each row; empty keeps all
}

// ListingResult holds the rows of every page that could be fetched and the
// URLs of those that could not.
type ListingResult struct {
	Rows   []*table.Record
	Failed []string
}

// DefaultListingConfig spaces listing requests 200ms apart.
func DefaultListingConfig() ClientConfig {
	return ClientConfig{
		UserAgent:   defaultUserAgent,
		Timeout:     30 * time.Second,
		MinInterval: 200 * time.Millisecond,
	}
}

// ListingClient pages through a DataTables-style listing API.
type ListingClient struct {
	http *resty.Client
	now  func() time.Time
}

// NewListingClient creates a listing client.
func NewListingClient(cfg ClientConfig) (*ListingClient, error) {
	client, err := newRestyClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing client: %w", err)
	}
	return &ListingClient{http: client, now: time.Now}, nil
}

// Fetch opens the listing page to establish a session and then requests
// every API page in turn. A page that fails is recorded in the result and
// does not stop the others.
func (c *ListingClient) Fetch(ctx context.Context, req ListingRequest) (ListingResult, error) {
	var result ListingResult

	if _, err := c.http.R().SetContext(ctx).Get(req.PageURL); err != nil {
		return result, fmt.Errorf("failed to open listing page %s: %w", req.PageURL, err)
	}

	headers := map[string]string{
		"accept":           "application/json, text/javascript, */*; q=0.01",
		"x-requested-with": "XMLHttpRequest",
		"referer":          req.PageURL,
	}

	urls, err := PageURLs(req.APIURL, req.Params, req.Pages, c.now())
	if err != nil {
		return result, err
	}
	for i, u := range urls {
		rows, err := c.fetchPage(ctx, u, headers, req.Fields)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err != nil {
			logger.Warn("listing page failed", "page", i+1, "url", u, "error", err)
			result.Failed = append(result.Failed, u)
			continue
		}
		logger.Debug("listing page fetched", "page", i+1, "rows", len(rows))
		result.Rows = append(result.Rows, rows...)
	}
	return result, nil
}

func (c *ListingClient) fetchPage(ctx context.Context, u string, headers map[string]string, fields []string) ([]*table.Record, error) {
	resp, err := c.http.R().SetContext(ctx).SetHeaders(headers).Get(u)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	var payload struct {
		Data []map[string]any `json:"data"`
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}

	rows := make([]*table.Record, 0, len(payload.Data))
	for _, data := range payload.Data {
		rows = append(rows, listingRecord(data, fields))
	}
	return rows, nil
}

// PageURLs builds the API URL of pages 1..n. Each page carries draw=page,
// start=(page-1)*length and a millisecond timestamp bumped by the page
// number so no two URLs collide.
func PageURLs(apiURL string, params map[string]string, pages int, now time.Time) ([]string, error) {
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", apiURL, err)
	}
	length := defaultPageLength
	if v, ok := params["length"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			length = n
		}
	}

	stamp := now.UnixMilli()
	urls := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		q.Set("draw", strconv.Itoa(page))
		q.Set("start", strconv.Itoa((page-1)*length))
		q.Set("_", strconv.FormatInt(stamp+int64(page), 10))

		u := *base
		u.RawQuery = q.Encode()
		urls = append(urls, u.String())
	}
	return urls, nil
}

// listingRecord keeps the requested fields that are present, in request
// order, or every field sorted by name when none are requested.
func listingRecord(data map[string]any, fields []string) *table.Record {
	if len(fields) == 0 {
		fields = make([]string, 0, len(data))
		for k := range data {
			fields = append(fields, k)
		}
		sort.Strings(fields)
	}
	rec := table.NewRecord()
	for _, f := range fields {
		if v, ok := data[f]; ok {
			rec.Set(f, jsonText(v))
		}
	}
	return rec
}

func jsonText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/ipoetl/pkg/fetcher"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

type fakeFetcher struct {
	mu   sync.Mutex
	urls []string
	fail map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ fetcher.Options) (fetcher.Content, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if f.fail[url] {
		return fetcher.Content{}, errors.New("boom")
	}
	return fetcher.Content{URL: url, HTML: "<html>" + url + "</html>", StatusCode: 200}, nil
}

func (f *fakeFetcher) Close() error { return nil }
func (f *fakeFetcher) Type() string { return "fake" }

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.urls...)
	sort.Strings(out)
	return out
}

func testListing() *table.Table {
	return table.MustNew(
		table.Strings("id", "1", "2", "3"),
		table.Strings("company_name", "Acme Ltd", "Beta Corp", ""),
		table.Strings("chittorgarh_slug", "acme-ltd", "beta-corp", "ghost"),
		table.Strings("investor_gain", "https://ig.example/acme/11/", "", ""),
	)
}

func testConfig(root string) Config {
	return Config{
		BaseURL:  "https://cg.example",
		HTMLRoot: root,
		Sections: []Section{
			{Name: "financials", Path: "{base_url}/ipo/{chittorgarh_slug}/{id}/"},
			{Name: "gmp", Key: "investor_gain"},
		},
		Concurrency: 2,
	}
}

// --- Plan Tests ---

func TestFileName(t *testing.T) {
	if got := FileName("Acme Infra Ltd"); got != "acme_infra_ltd.html" {
		t.Errorf("FileName() = %s", got)
	}
}

func TestDownloader_Plan(t *testing.T) {
	root := t.TempDir()
	d := New(&fakeFetcher{}, &fakeFetcher{}, testConfig(root))
	q := NewJobQueue()

	if n := d.Plan("mainboard", testListing(), q); n != 3 {
		t.Fatalf("Plan() queued %d jobs, want 3", n)
	}

	var got []Job
	for {
		job, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, job)
	}
	want := []Job{
		{Segment: "mainboard", Section: "financials", Company: "Acme Ltd", URL: "https://cg.example/ipo/acme-ltd/1/", Path: filepath.Join(root, "mainboard", "financials", "acme_ltd.html")},
		{Segment: "mainboard", Section: "gmp", Company: "Acme Ltd", URL: "https://ig.example/acme/11/", Path: filepath.Join(root, "mainboard", "gmp", "acme_ltd.html"), External: true},
		{Segment: "mainboard", Section: "financials", Company: "Beta Corp", URL: "https://cg.example/ipo/beta-corp/2/", Path: filepath.Join(root, "mainboard", "financials", "beta_corp.html")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestDownloader_PlanDeduplicates(t *testing.T) {
	d := New(&fakeFetcher{}, nil, testConfig(t.TempDir()))
	q := NewJobQueue()
	d.Plan("sme", testListing(), q)

	if n := d.Plan("sme", testListing(), q); n != 0 {
		t.Errorf("second Plan() queued %d jobs, want 0", n)
	}
}

// --- Run Tests ---

func TestDownloader_Download(t *testing.T) {
	root := t.TempDir()
	pages := &fakeFetcher{}
	external := &fakeFetcher{}
	d := New(pages, external, testConfig(root))

	stats := d.Download(context.Background(), "mainboard", testListing())
	if diff := cmp.Diff(Stats{Queued: 3, Saved: 3}, stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"https://cg.example/ipo/acme-ltd/1/", "https://cg.example/ipo/beta-corp/2/"}, pages.fetched()); diff != "" {
		t.Errorf("page fetches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://ig.example/acme/11/"}, external.fetched()); diff != "" {
		t.Errorf("external fetches mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(root, "mainboard", "gmp", "acme_ltd.html"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "<html>https://ig.example/acme/11/</html>" {
		t.Errorf("saved page = %q", data)
	}
}

func TestDownloader_SkipsExisting(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "mainboard", "financials", "acme_ltd.html")
	if err := os.MkdirAll(filepath.Dir(existing), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	pages := &fakeFetcher{}
	stats := New(pages, &fakeFetcher{}, testConfig(root)).Download(context.Background(), "mainboard", testListing())

	if stats.Skipped != 1 || stats.Saved != 2 {
		t.Errorf("Stats = %+v, want 1 skipped and 2 saved", stats)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "old" {
		t.Error("existing page was overwritten")
	}
}

func TestDownloader_FailuresAreCounted(t *testing.T) {
	root := t.TempDir()
	pages := &fakeFetcher{fail: map[string]bool{"https://cg.example/ipo/beta-corp/2/": true}}

	stats := New(pages, nil, testConfig(root)).Download(context.Background(), "mainboard", testListing())

	// Beta fails in fetch; the external GMP job fails for want of a fetcher.
	if stats.Failed != 2 || stats.Saved != 1 {
		t.Errorf("Stats = %+v, want 2 failed and 1 saved", stats)
	}
	if _, err := os.Stat(filepath.Join(root, "mainboard", "financials", "beta_corp.html")); !os.IsNotExist(err) {
		t.Error("failed page should not be written")
	}
}

func TestDownloader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := &fakeFetcher{}
	stats := New(pages, &fakeFetcher{}, testConfig(t.TempDir())).Download(ctx, "mainboard", testListing())
	if stats.Saved != 0 || len(pages.fetched()) != 0 {
		t.Errorf("cancelled run fetched pages: %+v", stats)
	}
}

package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

func field(t *testing.T, rec *table.Record, name string) string {
	t.Helper()
	v, ok := rec.Get(name)
	if !ok {
		t.Fatalf("record has no field %s (fields: %v)", name, rec.Names())
	}
	return v
}

func extract(t *testing.T, ex Extractor, doc string) *table.Record {
	t.Helper()
	rec, err := ex.Extract(doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	return rec
}

// --- Registry Tests ---

func TestForSection(t *testing.T) {
	for _, s := range Sections() {
		ex, err := ForSection(s)
		if err != nil {
			t.Fatalf("ForSection(%s) error = %v", s, err)
		}
		if ex.Section() != s {
			t.Errorf("ForSection(%s).Section() = %s", s, ex.Section())
		}
	}
}

func TestForSection_Unsupported(t *testing.T) {
	if _, err := ForSection("prospectus"); !errors.Is(err, ErrUnsupportedSection) {
		t.Errorf("ForSection() error = %v, want ErrUnsupportedSection", err)
	}
}

func TestSections(t *testing.T) {
	want := []string{SectionFinancials, SectionGMP, SectionInformation, SectionPerformance, SectionSubscription}
	if diff := cmp.Diff(want, Sections()); diff != "" {
		t.Errorf("Sections() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompanyFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"raw/html/mainboard/gmp/acme_ltd.html", "acme_ltd"},
		{"foo.bar.html", "foo"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := CompanyFromPath(tt.path); got != tt.want {
				t.Errorf("CompanyFromPath(%s) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme_ltd.html")
	if err := os.WriteFile(path, []byte(performancePage), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := ExtractFile(NewPerformance(), path)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if got := field(t, rec, columns.Company); got != "acme_ltd" {
		t.Errorf("company = %s, want acme_ltd", got)
	}
	if got := field(t, rec, "issue_price"); got != "115" {
		t.Errorf("issue_price = %s, want 115", got)
	}
}

func TestExtractFile_Missing(t *testing.T) {
	if _, err := ExtractFile(NewGMP(), filepath.Join(t.TempDir(), "absent.html")); err == nil {
		t.Error("ExtractFile() expected error for a missing file")
	}
}

// --- Performance Tests ---

const performancePage = `<html><body>
<div class="perf">
  <p>Face Value: ₹ 10</p>
  <p>Issue Price: ₹ 115</p>
  <p>Listing Price: ₹&nbsp;130.5</p>
  <p>Listing Gain (%) 13.48 %</p>
</div>
<script>var issuePrice = 999;</script>
</body></html>`

func TestPerformance_Extract(t *testing.T) {
	rec := extract(t, NewPerformance(), performancePage)

	want := map[string]string{
		"face_value":    "10",
		"issue_price":   "115",
		"listing_price": "130.5",
		"listing_gain":  "13.48",
	}
	for name, v := range want {
		if got := field(t, rec, name); got != v {
			t.Errorf("%s = %q, want %q", name, got, v)
		}
	}
}

func TestPerformance_MissingFieldsAreNull(t *testing.T) {
	rec := extract(t, NewPerformance(), `<p>nothing here</p>`)
	if diff := cmp.Diff([]string{"face_value", "issue_price", "listing_price", "listing_gain"}, rec.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	for _, name := range rec.Names() {
		if got := field(t, rec, name); got != "" {
			t.Errorf("%s = %q, want null", name, got)
		}
	}
}

// --- Financials Tests ---

func TestFinancials_Text(t *testing.T) {
	doc := `<div>
  <p>Total Assets: 1,200.50</p>
  <p>Net Worth: 800</p>
  <p>ROE (%) 18.5</p>
</div>`
	rec := extract(t, NewFinancials(), doc)

	if got := field(t, rec, "assets"); got != "1,200.50" {
		t.Errorf("assets = %q, want 1,200.50", got)
	}
	if got := field(t, rec, "net_worth"); got != "800" {
		t.Errorf("net_worth = %q, want 800", got)
	}
	if got := field(t, rec, "roe"); got != "18.5" {
		t.Errorf("roe = %q, want 18.5", got)
	}
	if got := field(t, rec, "nav"); got != "" {
		t.Errorf("nav = %q, want null", got)
	}
	if rec.Len() != len(financialPatterns) {
		t.Errorf("Len() = %d, want %d", rec.Len(), len(financialPatterns))
	}
}

func TestFinancials_TableFallback(t *testing.T) {
	doc := `<table>
  <tr><th>Metric</th><th>Value</th></tr>
  <tr><td>Total Debt (₹ Cr)</td><td>42</td></tr>
</table>`
	rec := extract(t, NewFinancials(), doc)

	if got := field(t, rec, "total_debt"); got != "42" {
		t.Errorf("total_debt = %q, want 42", got)
	}
	if got := rec.Names()[2]; got != "total_debt" {
		t.Errorf("fallback moved total_debt to position of %s", got)
	}
}

// --- GMP Tests ---

const gmpPage = `<html><body>
<h2>Acme IPO GMP Trend</h2>
<p>Day-wise grey market premium.</p>
<table>
  <thead><tr><th>GMP Date</th><th>IPO Price</th><th>GMP</th></tr></thead>
  <tbody>
    <tr><td>12-12-2025 <span class="badge bg-info">Listing</span></td><td>100</td><td>₹25 (25%)</td></tr>
    <tr><td>10-12-2025 <span class="badge">Allotment</span></td><td>100</td><td>₹22</td></tr>
    <tr><td>09-12-2025 <span class="badge">Close</span></td><td>100</td><td>₹-3</td></tr>
    <tr><td>08-12-2025</td><td>100</td><td>₹18</td></tr>
    <tr><td>05-12-2025 <span class="badge">Open</span></td><td>100</td><td>₹15.5</td></tr>
    <tr><td>04-12-2025 <span class="badge">Open</span></td><td>100</td><td>₹11</td></tr>
  </tbody>
</table>
</body></html>`

func TestGMP_Extract(t *testing.T) {
	rec := extract(t, NewGMP(), gmpPage)

	want := map[string]string{
		"ipo_open_gmp":      "15.5",
		"ipo_close_gmp":     "-3",
		"ipo_allotment_gmp": "22",
		"ipo_listing_gmp":   "25",
	}
	for name, v := range want {
		if got := field(t, rec, name); got != v {
			t.Errorf("%s = %q, want %q", name, got, v)
		}
	}
}

func TestGMP_HeaderFallback(t *testing.T) {
	doc := `<table>
  <thead><tr><th>GMP Date</th><th>Price</th><th>GMP</th></tr></thead>
  <tbody><tr><td>Open day</td><td>90</td><td>7</td></tr></tbody>
</table>`
	rec := extract(t, NewGMP(), doc)

	if got := field(t, rec, "ipo_open_gmp"); got != "7" {
		t.Errorf("ipo_open_gmp = %q, want 7", got)
	}
	if got := field(t, rec, "ipo_listing_gmp"); got != "" {
		t.Errorf("ipo_listing_gmp = %q, want null", got)
	}
}

func TestGMP_NoTable(t *testing.T) {
	rec := extract(t, NewGMP(), `<p>GMP not available</p>`)
	if rec.Len() != len(gmpTargets) {
		t.Fatalf("Len() = %d, want %d", rec.Len(), len(gmpTargets))
	}
	for _, name := range rec.Names() {
		if got := field(t, rec, name); got != "" {
			t.Errorf("%s = %q, want null", name, got)
		}
	}
}

// --- Information Tests ---

const informationPage = `<html><body>
<div class="details">
  <p>IPO Category: Mainboard</p>
  <p>Exchange: NSE, BSE</p>
  <p>Issue Type: Book Built</p>
  <p>IPO Size: ₹ 500 Cr.</p>
  <p>Issue Price: ₹ 100</p>
  <p>Market Capitalisation: ₹ 2,000 Cr.</p>
  <p>PE multiple: 25.5</p>
  <p>Subscription: 45.2 times</p>
  <p>Pre Issue Promoter Holding: 75.00%</p>
  <p>Post Issue Promoter Holding: 55.5%</p>
</div>
<div class="dates">
  <p>Date of DRHP: 1st Jan 2025</p>
  <p>IPO Open Date: 10th December 2025</p>
  <p>IPO Close Date: 12th December 2025</p>
  <p>IPO Allotment Date: 15th December 2025</p>
  <p>IPO Listing Date: 17th December 2025</p>
</div>
<div class="objects">
  <h2>Objects of the Issue</h2>
  <ul>
    <li>Repayment of borrowings</li>
    <li>General corporate purposes</li>
    <li>Capex</li>
  </ul>
</div>
</body></html>`

func TestInformation_Extract(t *testing.T) {
	rec := extract(t, NewInformation(), informationPage)

	want := map[string]string{
		"ipo_category":                "Mainboard",
		"exchange":                    "NSE, BSE",
		"issue_type":                  "Book Built",
		"ipo_size":                    "₹ 500 Cr.",
		"issue_price":                 "₹ 100",
		"market_capitalisation":       "₹ 2,000 Cr.",
		"pe_multiple":                 "25.5",
		"subscription":                "45.2",
		"post_issue_promoter_holding": "55.5",
		"dhrp_date":                   "1st Jan 2025",
		"open_date":                   "10th December 2025",
		"close_date":                  "12th December 2025",
		"allotment_date":              "15th December 2025",
		"listing_date":                "17th December 2025",
		"object_of_issue":             "Repayment of borrowings; General corporate purposes",
	}
	for name, v := range want {
		if got := field(t, rec, name); got != v {
			t.Errorf("%s = %q, want %q", name, got, v)
		}
	}
}

func TestInformation_ObjectParagraphs(t *testing.T) {
	doc := `<div>
  <h3>Object of the Issue</h3>
  <p>To fund working capital requirements</p>
  <p>To repay loans taken</p>
  <p>short</p>
  <h3>Promoters</h3>
  <p>Not an object of the issue at all</p>
</div>`
	rec := extract(t, NewInformation(), doc)

	want := "To fund working capital requirements; To repay loans taken"
	if got := field(t, rec, "object_of_issue"); got != want {
		t.Errorf("object_of_issue = %q, want %q", got, want)
	}
}

func TestInformation_MissingLabels(t *testing.T) {
	rec := extract(t, NewInformation(), `<p>Coming soon</p>`)
	if got := field(t, rec, "ipo_size"); got != "" {
		t.Errorf("ipo_size = %q, want null", got)
	}
	if _, ok := rec.Get("object_of_issue"); ok {
		t.Error("object_of_issue should be absent without a heading")
	}
}

// --- Subscription Tests ---

const subscriptionPage = `<html><body>
<table>
  <tr><th>Category</th><th>Subscription (times)</th></tr>
  <tr><td>Anchor Investors</td><td>1</td></tr>
  <tr><td>QIB</td><td>120.5</td></tr>
  <tr><td>Non-Institutional Buyers**</td><td>80.2</td></tr>
  <tr><td>&nbsp;- bNII (bids above ₹10L)</td><td>90.1</td></tr>
  <tr><td>&nbsp;- sNII (bids below ₹10L)</td><td>60.3</td></tr>
  <tr><td>Retail Investors</td><td>15.7</td></tr>
  <tr><td>Employees</td><td></td></tr>
  <tr><td>Total</td><td>55.0</td></tr>
</table>
<table>
  <tr><th>Category</th><th>Shares Offered</th><th>Size (%)</th></tr>
  <tr><td>Anchor Investors</td><td>3,000</td><td>30%</td></tr>
  <tr><td>QIB</td><td>2,000</td><td>20%</td></tr>
  <tr><td>Retail Investors</td><td>3,500</td><td>35%</td></tr>
  <tr><td>Total</td><td>10,000</td><td>100%</td></tr>
</table>
</body></html>`

func TestSubscription_Extract(t *testing.T) {
	rec := extract(t, NewSubscription(), subscriptionPage)

	wantNames := []string{
		"subscription_anchor_investors",
		"subscription_qib",
		"subscription_non_institutional_buyers",
		"subscription_bnii_bids_above_10l",
		"subscription_snii_bids_below_10l",
		"subscription_retail_investors",
		"allocation_anchor_investors",
		"allocation_qib",
		"allocation_retail_investors",
	}
	if diff := cmp.Diff(wantNames, rec.Names()); diff != "" {
		t.Fatalf("Names() mismatch (-want +got):\n%s", diff)
	}
	if got := field(t, rec, "subscription_bnii_bids_above_10l"); got != "90.1" {
		t.Errorf("subscription_bnii_bids_above_10l = %q, want 90.1", got)
	}
	if got := field(t, rec, "allocation_retail_investors"); got != "35%" {
		t.Errorf("allocation_retail_investors = %q, want 35%%", got)
	}
}

func TestSubscription_NoTables(t *testing.T) {
	rec := extract(t, NewSubscription(), `<p>Subscription status will be updated</p>`)
	if rec.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rec.Len())
	}
}

func TestCategoryKey(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Anchor Investors", "anchor_investors"},
		{"QIB (Ex Anchor)", "anchor_investors"},
		{"QIBs", "qib"},
		{"Retail Individual Investors (RIIs)", "retail_individual_investors_riis"},
		{"Non Institutional Investors", "non_institutional_buyers"},
		{"NII", "non_institutional_buyers"},
		{"NII bids above 10 Lakh", "nii_bids_above_10_lakh"},
		{"bNII (bids above ₹10L)", "bnii_bids_above_10l"},
		{"Employees*", "employees"},
		{"Eligible Shareholders", "shareholders"},
		{"Market Maker", "market_maker"},
		{"Policy Holders & Others", "policy_holders_and_others"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := categoryKey(tt.label); got != tt.want {
				t.Errorf("categoryKey(%q) = %s, want %s", tt.label, got, tt.want)
			}
		})
	}
}

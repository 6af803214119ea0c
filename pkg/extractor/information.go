package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/ipoetl/pkg/table"
)

// Labels on the information page are matched case-sensitively: the page
// reuses words like "issue" in free text.
var informationPatterns = []pattern{
	{"ipo_category", regexp.MustCompile(`IPO\s+Category\s*:\s*([^:\n]+?)(?:\s+(?:Exchange|Issue|IPO\s+Size)|$)`)},
	{"exchange", regexp.MustCompile(`Exchange\s*:\s*([^:\n]+?)(?:\s+(?:Issue\s+Type|IPO\s+Size)|$)`)},
	{"issue_type", regexp.MustCompile(`Issue\s+Type\s*:\s*([^:\n]+?)(?:\s+(?:IPO\s+Size|Issue\s+Price)|$)`)},
	{"ipo_size", regexp.MustCompile(`IPO\s+Size\s*:\s*([^:\n]+?)(?:\s+(?:Issue\s+Price|Market\s+Capitalisation)|$)`)},
	{"issue_price", regexp.MustCompile(`Issue\s+Price\s*:\s*([^:\n]+?)(?:\s+(?:Market\s+Capitalisation|PE\s+multiple)|$)`)},
	{"market_capitalisation", regexp.MustCompile(`Market\s+Capitalisation\s*:\s*([^:\n]+?)(?:\s+(?:PE\s+multiple|Subscription)|$)`)},
	{"pe_multiple", regexp.MustCompile(`PE\s+multiple\s*:\s*([^:\n]+?)(?:\s+(?:Subscription|Pre\s+Issue)|$)`)},
	{"subscription", regexp.MustCompile(`Subscription\s*:\s*([^:\n]+?)(?:\s+(?:Pre\s+Issue|Post\s+Issue|times)|$)`)},
	{"pre_issue_promoter_holding", regexp.MustCompile(`Pre\s+Issue\s+Promoter\s+Holding\s*:\s*([^:\n]+?)(?:\s+(?:Post\s+Issue|%)|$)`)},
	{"post_issue_promoter_holding", regexp.MustCompile(`Post\s+Issue\s+Promoter\s+Holding\s*:\s*([^:\n%]+?)(?:%|$)`)},
}

var datePatterns = []pattern{
	{"dhrp_date", regexp.MustCompile(`Date\s+of\s+DRHP\s*:\s*([^:\n]+?)(?:\s+(?:IPO\s+Open|Initiation)|$)`)},
	{"open_date", regexp.MustCompile(`IPO\s+Open\s+Date\s*:\s*([^:\n]+?)(?:\s+(?:IPO\s+Close|Initiation)|$)`)},
	{"close_date", regexp.MustCompile(`IPO\s+Close\s+Date\s*:\s*([^:\n]+?)(?:\s+(?:IPO\s+Allotment|Initiation)|$)`)},
	{"allotment_date", regexp.MustCompile(`IPO\s+Allotment\s+Date\s*:\s*([^:\n]+?)(?:\s+(?:IPO\s+Listing|Initiation|Refund)|$)`)},
	{"listing_date", regexp.MustCompile(`(?i)IPO\s+Listing\s+Date\s*:\s*(?:<[^>]*>\s*)*(\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]{3,9}\s+\d{4})`)},
}

var (
	fieldTail = regexp.MustCompile(`(?:Read|Financial|Information|Documents|Key|Highlights).*$`)
	dateTail  = regexp.MustCompile(`(?:Initiation|Refund|Read|Documents|Financial).*$`)
)

const (
	maxObjects     = 10
	objectSep      = "; "
	minObjectText  = 10
	minObjectItems = 5
)

// Information extracts the issue details, key dates and the objects of the
// issue from an IPO's main page.
type Information struct{}

// NewInformation returns an IPO information extractor.
func NewInformation() *Information { return &Information{} }

func (*Information) Section() string { return SectionInformation }

func (*Information) Extract(doc string) (*table.Record, error) {
	d, err := parse(doc)
	if err != nil {
		return nil, err
	}
	text := pageText(d)

	rec := table.NewRecord()
	labelled(rec, text, informationPatterns, fieldTail)
	labelled(rec, text, datePatterns, dateTail)

	if objects := objectsOfIssue(d); len(objects) > 0 {
		rec.Set("object_of_issue", strings.Join(objects, objectSep))
	}
	return rec, nil
}

// labelled sets each field from its pattern and strips any trailing
// section heading the lazy match ran into.
func labelled(rec *table.Record, text string, patterns []pattern, tail *regexp.Regexp) {
	for _, p := range patterns {
		v, ok := firstSubmatch(p.rx, text)
		if !ok {
			rec.SetNull(p.field)
			continue
		}
		rec.Set(p.field, strings.TrimSpace(tail.ReplaceAllString(clean(v), "")))
	}
}

// objectsOfIssue collects the items listed after the first "Object(s) of
// the Issue" heading: a following list, paragraphs, or loose text, up to
// the next heading.
func objectsOfIssue(d *goquery.Document) []string {
	var objects []string
	d.Find("h2, h3, h4, strong, b").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		label := strings.ToLower(cellText(h))
		if !strings.Contains(label, "object") || !strings.Contains(label, "issue") {
			return true
		}
		objects = objectsAfter(h.Get(0))
		return len(objects) == 0
	})
	if len(objects) > maxObjects {
		objects = objects[:maxObjects]
	}
	return objects
}

func objectsAfter(heading *html.Node) []string {
	var out []string
	for n := heading.NextSibling; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			if s := clean(n.Data); longer(s, minObjectText) && !strings.HasPrefix(s, "<") {
				out = append(out, s)
				if len(out) > maxObjects {
					return out
				}
			}
		case html.ElementNode:
			switch n.Data {
			case "ul", "ol":
				goquery.NewDocumentFromNode(n).Find("li").Each(func(_ int, li *goquery.Selection) {
					if s := cellText(li); longer(s, minObjectItems) {
						out = append(out, s)
					}
				})
				return out
			case "h2", "h3", "h4":
				return out
			case "p":
				if s := cellText(goquery.NewDocumentFromNode(n).Selection); longer(s, minObjectText) {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func longer(s string, n int) bool {
	return utf8.RuneCountInString(s) > n
}

package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

func parse(doc string) (*goquery.Document, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return d, nil
}

// flatten joins the trimmed, non-empty text nodes under sel with sep.
// Script, style and template contents and comments are skipped, and
// non-breaking spaces become plain spaces so patterns can match them
// with \s.
func flatten(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(plainSpaces(n.Data)); s != "" {
				parts = append(parts, s)
			}
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}

// pageText flattens a whole document with single spaces.
func pageText(doc *goquery.Document) string {
	return flatten(doc.Selection, " ")
}

// clean collapses whitespace runs and trims.
func clean(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(plainSpaces(s), " "))
}

// cellText is the concatenated text of a cell, cleaned.
func cellText(sel *goquery.Selection) string {
	return clean(sel.Text())
}

func plainSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\u00a0' || r == '\u202f' {
			return ' '
		}
		return r
	}, s)
}

// firstSubmatch returns the first capture group of rx in text.
func firstSubmatch(rx *regexp.Regexp, text string) (string, bool) {
	m := rx.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Package extract recovers structured readings from loosely structured pages.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is a fetched document prepared for the extraction strategies.
type Page struct {
	Raw  string
	Text string // visible text, whitespace-normalized
	Doc  *goquery.Document
}

// NewPage parses raw HTML (or plain text) into a Page. Parsing never fails;
// input that is not HTML still yields its text.
func NewPage(raw string) *Page {
	p := &Page{Raw: raw}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		p.Text = normalizeSpace(raw)
		return p
	}
	p.Doc = doc
	p.Text = visibleText(doc)
	return p
}

// visibleText joins text nodes with spaces, skipping script and style
// content, so adjacent cells do not run together.
func visibleText(doc *goquery.Document) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return normalizeSpace(strings.Join(parts, " "))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// snippet returns up to width characters of text centred on [start,end).
func snippet(text string, start, end, width int) string {
	runes := []rune(text)
	// Convert byte offsets to rune offsets.
	rs := len([]rune(text[:start]))
	re := len([]rune(text[:end]))
	pad := (width - (re - rs)) / 2
	if pad < 0 {
		pad = 0
	}
	from := rs - pad
	if from < 0 {
		from = 0
	}
	to := re + pad
	if to > len(runes) {
		to = len(runes)
	}
	out := strings.TrimSpace(string(runes[from:to]))
	if r := []rune(out); len(r) > width {
		out = string(r[:width])
	}
	return out
}

package fetch

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document parses a fetched page.
func Document(p *Page) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
}

// TextOf returns the visible text of an HTML page with whitespace collapsed.
func TextOf(p *Page) (string, error) {
	doc, err := Document(p)
	if err != nil {
		return "", err
	}
	return SelectionText(doc.Find("body")), nil
}

const blockElements = "p, li, br, div, h1, h2, h3, h4, td, th, dt, dd"

// SelectionText is the text of sel without scripts and styles. Block
// elements, including those in sel itself, are separated by a newline so
// clause boundaries survive.
func SelectionText(sel *goquery.Selection) string {
	sel = sel.Clone()
	sel.Find("script, style, noscript, template").Remove()
	sel.Filter(blockElements).AddSelection(sel.Find(blockElements)).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks parses the rendered HTML and returns every anchor's href with
// its visible text. The caller feeds each link through normalization and
// classification before enqueueing.
func ExtractLinks(html string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	var links []Link
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		links = append(links, Link{
			Href: strings.TrimSpace(href),
			Text: strings.TrimSpace(sel.Text()),
		})
	})
	return links, nil
}

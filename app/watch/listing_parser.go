package watch

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListingParser turns the approvals table on a listing page into
// candidates. The source publishes one table: drug name and link in
// the first cell, short description in the second, approval date in
// the third.
type ListingParser struct{}

func NewListingParser() *ListingParser {
	return &ListingParser{}
}

// Run parses the first table in the page. Rows that are missing a
// name or link are skipped and counted; a page without a table is a
// ParseError, since there is nothing to diff against. Candidates come
// back in listing order, newest first.
func (p *ListingParser) Run(data []byte, pageURL string) ([]Candidate, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, &ParseError{URL: pageURL, Message: fmt.Sprintf("failed to parse HTML: %v", err)}
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, 0, &ParseError{URL: pageURL, Message: "no table found in listing page"}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, 0, &ParseError{URL: pageURL, Message: fmt.Sprintf("invalid page URL: %v", err)}
	}

	var candidates []Candidate
	skipped := 0

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			// Header and spacer rows
			return
		}

		name := strings.TrimSpace(cells.Eq(0).Text())
		description := strings.TrimSpace(cells.Eq(1).Text())
		approvalDate := strings.TrimSpace(cells.Eq(2).Text())

		href, ok := cells.Eq(0).Find("a[href]").First().Attr("href")
		href = strings.TrimSpace(href)
		if name == "" || !ok || href == "" {
			skipped++
			slog.Debug("Skipping malformed listing row", "row", i, "name", name)
			return
		}

		candidates = append(candidates, Candidate{
			Name:         name,
			ApprovalDate: approvalDate,
			DetailURL:    resolveURL(base, href),
			Description:  description,
		})
	})

	return candidates, skipped, nil
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

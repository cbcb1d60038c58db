package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// PDFMarker stands in for detail pages that are PDF documents.
// Conversion needs OCR, which happens elsewhere; the marker keeps the
// record present and diffable.
const PDFMarker = "[PDF CONTENT - REQUIRES OCR]"

// ErrContentTooShort flags detail pages whose extracted text is too
// small to be a real announcement. The candidate is skipped, not
// emitted as a near-empty document.
var ErrContentTooShort = errors.New("extracted content too short")

// DefaultSelectors is the content-container chain tried in order on
// detail pages, from most to least specific.
func DefaultSelectors() []string {
	return []string{
		"div[role='main']",
		"div[class*='field--name-body']",
		"article",
		"div[class*='node__content']",
	}
}

// Scraper fetches a candidate's detail page and extracts its
// full-text corpus.
type Scraper struct {
	fetcher   Fetcher
	selectors []string
	minLength int
	timeout   time.Duration
}

func NewScraper(fetcher Fetcher, sourceConfig *Config) *Scraper {
	return &Scraper{
		fetcher:   fetcher,
		selectors: sourceConfig.Settings.Selectors,
		minLength: sourceConfig.Settings.MinTextLength,
		timeout:   time.Duration(sourceConfig.Settings.DetailTimeout) * time.Second,
	}
}

// Scrape builds the enriched document for a candidate. Failures are
// soft: the caller logs and skips the candidate, the run continues.
func (s *Scraper) Scrape(ctx context.Context, candidate Candidate) (Document, error) {
	detailURL := candidate.DetailURL
	if !strings.HasPrefix(detailURL, "http") {
		return Document{}, &ParseError{URL: detailURL, Message: "detail URL is not absolute"}
	}

	if strings.HasSuffix(strings.ToLower(detailURL), ".pdf") {
		return s.document(candidate, PDFMarker), nil
	}

	fetchCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	body, err := s.fetcher.Fetch(fetchCtx, detailURL)
	if err != nil {
		return Document{}, fmt.Errorf("failed to fetch detail page: %w", err)
	}

	text, err := s.extract(body, detailURL)
	if err != nil {
		return Document{}, err
	}
	if utf8.RuneCountInString(text) < s.minLength {
		return Document{}, fmt.Errorf("%w: %d chars from %s", ErrContentTooShort, utf8.RuneCountInString(text), detailURL)
	}

	return s.document(candidate, text), nil
}

func (s *Scraper) document(candidate Candidate, text string) Document {
	return Document{
		Candidate:   candidate,
		FullText:    text,
		RetrievedAt: time.Now(),
	}
}

// extract pulls the announcement text out of the page: the first
// matching container from the selector chain (falling back to the
// paragraph-densest div, then the body), read as headings, paragraphs
// and list items in document order. If that yields too little, a
// readability pass over the whole page is tried.
func (s *Scraper) extract(body []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", &ParseError{URL: pageURL, Message: fmt.Sprintf("failed to parse detail page: %v", err)}
	}

	text := structuredText(s.findContainer(doc))

	if utf8.RuneCountInString(text) < s.minLength {
		if alt := readabilityText(body, pageURL); utf8.RuneCountInString(alt) > utf8.RuneCountInString(text) {
			slog.Debug("Using readability extraction", "url", pageURL, "chars", utf8.RuneCountInString(alt))
			text = alt
		}
	}

	return text, nil
}

func (s *Scraper) findContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range s.selectors {
		if container := doc.Find(selector).First(); container.Length() > 0 {
			return container
		}
	}

	// The div holding the most paragraphs, then the whole body
	var densest *goquery.Selection
	densestCount := 0
	doc.Find("div").Each(func(_ int, div *goquery.Selection) {
		if count := div.Find("p").Length(); count > densestCount {
			densest = div
			densestCount = count
		}
	})
	if densest != nil {
		return densest
	}

	return doc.Find("body")
}

// structuredText reads headings, paragraphs and list items in
// document order, one block per element, joined by blank lines.
func structuredText(container *goquery.Selection) string {
	var parts []string

	container.Find("h1, h2, h3, h4, h5, h6, p, ul, ol").Each(func(_ int, el *goquery.Selection) {
		switch goquery.NodeName(el) {
		case "ul", "ol":
			el.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
				if text := collapseSpace(li.Text()); text != "" {
					parts = append(parts, text)
				}
			})
		default:
			if text := collapseSpace(el.Text()); text != "" {
				parts = append(parts, text)
			}
		}
	})

	return strings.Join(parts, "\n\n")
}

func readabilityText(data []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsed)
	if err != nil {
		slog.Debug("Readability extraction failed", "url", pageURL, "error", err)
		return ""
	}

	return strings.TrimSpace(article.TextContent)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

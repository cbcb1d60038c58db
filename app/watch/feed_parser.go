package watch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedParser turns an RSS or Atom listing into candidates, for
// sources that publish a structured feed instead of an HTML table.
type FeedParser struct {
	gofeedParser *gofeed.Parser
}

func NewFeedParser() *FeedParser {
	return &FeedParser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *FeedParser) Run(data []byte, pageURL string) ([]Candidate, int, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, 0, &ParseError{URL: pageURL, Message: fmt.Sprintf("failed to parse feed: %v", err)}
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	skipped := 0

	for _, item := range feed.Items {
		if item == nil {
			skipped++
			continue
		}

		name := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if name == "" || link == "" {
			skipped++
			continue
		}

		approvalDate := strings.TrimSpace(item.Published)
		if item.PublishedParsed != nil {
			// Align with the listing table's date format
			approvalDate = item.PublishedParsed.Format("01/02/2006")
		}

		candidates = append(candidates, Candidate{
			Name:         name,
			ApprovalDate: approvalDate,
			DetailURL:    link,
			Description:  strings.TrimSpace(item.Description),
		})
	}

	return candidates, skipped, nil
}

package watch

import (
	"errors"
	"testing"
)

func TestFeedParserRun(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Approval Announcements</title>
    <link>https://example.com</link>
    <description>Recent drug approval notices</description>
    <item>
      <title>Alphazumab approved for advanced renal cell carcinoma</title>
      <link>https://example.com/node/101</link>
      <description>Approval notice for alphazumab</description>
      <pubDate>Wed, 15 Jan 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Betatinib approved for mantle cell lymphoma</title>
      <link>https://example.com/node/102</link>
    </item>
  </channel>
</rss>`

	parser := NewFeedParser()
	candidates, skipped, err := parser.Run([]byte(rss), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if skipped != 0 {
		t.Errorf("Expected 0 skipped items, got: %d", skipped)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got: %d", len(candidates))
	}

	first := candidates[0]
	if first.Name != "Alphazumab approved for advanced renal cell carcinoma" {
		t.Errorf("Expected item title as name, got: %s", first.Name)
	}
	if first.DetailURL != "https://example.com/node/101" {
		t.Errorf("Expected item link as detail URL, got: %s", first.DetailURL)
	}
	if first.Description != "Approval notice for alphazumab" {
		t.Errorf("Expected item description, got: %s", first.Description)
	}
	// Publication dates are rendered in the same format the listing
	// table uses
	if first.ApprovalDate != "01/15/2025" {
		t.Errorf("Expected approval date '01/15/2025', got: %s", first.ApprovalDate)
	}

	second := candidates[1]
	if second.ApprovalDate != "" {
		t.Errorf("Expected empty approval date for undated item, got: %s", second.ApprovalDate)
	}
}

func TestFeedParserSkipsIncompleteItems(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Approval Announcements</title>
    <link>https://example.com</link>
    <item>
      <title>Gammaclib approved for hepatocellular carcinoma</title>
      <link>https://example.com/node/201</link>
    </item>
    <item>
      <title>Item without a link</title>
    </item>
    <item>
      <link>https://example.com/node/203</link>
    </item>
  </channel>
</rss>`

	parser := NewFeedParser()
	candidates, skipped, err := parser.Run([]byte(rss), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if skipped != 2 {
		t.Errorf("Expected 2 skipped items, got: %d", skipped)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got: %d", len(candidates))
	}
	if candidates[0].Name != "Gammaclib approved for hepatocellular carcinoma" {
		t.Errorf("Expected complete item kept, got: %s", candidates[0].Name)
	}
}

func TestFeedParserInvalidFeed(t *testing.T) {
	parser := NewFeedParser()
	_, _, err := parser.Run([]byte("not a feed at all"), "https://example.com/feed.xml")
	if err == nil {
		t.Fatal("Expected error for unparseable feed, got none")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got: %T", err)
	}
}

func TestFeedParserAtom(t *testing.T) {
	atom := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Approval Announcements</title>
  <entry>
    <title>Deltasertib approved for metastatic melanoma</title>
    <link href="https://example.com/node/301"/>
    <updated>2025-03-04T09:00:00Z</updated>
  </entry>
</feed>`

	parser := NewFeedParser()
	candidates, _, err := parser.Run([]byte(atom), "https://example.com/feed.atom")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got: %d", len(candidates))
	}
	if candidates[0].DetailURL != "https://example.com/node/301" {
		t.Errorf("Expected Atom link as detail URL, got: %s", candidates[0].DetailURL)
	}
}

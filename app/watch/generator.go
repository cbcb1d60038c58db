package watch

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/mkazmer/approval-watch/app/cfg"
	"github.com/mkazmer/approval-watch/app/database"
)

// Generator renders archived documents as an RSS 2.0 feed so newly
// published approvals can be followed with an ordinary feed reader.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(source database.Source, docs []database.Document) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", source.Name, 4)
	g.writeElement(&buf, "link", source.URL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Newly published approval records from %s", source.URL), 4)

	var selfLink string
	if cfg.Get().BaseUrl != "" {
		selfLink = fmt.Sprintf("%s/feeds/%s", cfg.Get().BaseUrl, source.Name)
	} else {
		selfLink = fmt.Sprintf("http://localhost:%s/feeds/%s", cfg.Get().Port, source.Name)
	}
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(docs) > 0 {
		lastBuildDate = cmp.Or(docs[0].RetrievedAt, docs[0].CreatedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Approval-Watch/%s", cfg.Get().Version), 4)

	for _, doc := range docs {
		g.writeItem(&buf, doc)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, doc database.Document) {
	buf.WriteString("    <item>\n")

	if doc.Fingerprint != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(doc.Fingerprint)))
		xml.EscapeText(buf, []byte(doc.Fingerprint))
		buf.WriteString("</guid>\n")
	}

	title := doc.Name
	if doc.ApprovalDate != "" {
		title = fmt.Sprintf("%s (%s)", doc.Name, doc.ApprovalDate)
	}
	if title != "" {
		g.writeElement(buf, "title", title, 6)
	}

	if doc.DetailURL != "" {
		g.writeElement(buf, "link", doc.DetailURL, 6)
	}

	g.writeElement(buf, "description", cmp.Or(doc.Description, "No description available"), 6)

	if doc.FullText != "" && doc.FullText != doc.Description {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(doc.FullText)
		buf.WriteString("]]></content:encoded>\n")
	}

	g.writeElement(buf, "pubDate", doc.RetrievedAt.Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}

package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// CorpusLine is one JSONL line of the combined corpus, the shape
// retrieval systems ingest.
type CorpusLine struct {
	Content     string `json:"content"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Date        string `json:"date"`
	Version     string `json:"version"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Fingerprint string `json:"fingerprint"`
}

var imageTags = regexp.MustCompile(`!\[.*?\]\(.*?\)`)

// Combiner flattens a source's clean documents into a single JSONL
// corpus file, one compact JSON object per line.
type Combiner struct {
	cleanDir   string
	corpusPath string
	sourceTag  string
}

func NewCombiner(cleanDir, corpusPath, sourceTag string) *Combiner {
	return &Combiner{
		cleanDir:   cleanDir,
		corpusPath: corpusPath,
		sourceTag:  sourceTag,
	}
}

// Run rebuilds the corpus file from every clean document. With no
// clean documents present nothing is written and any existing corpus
// file is left alone.
func (c *Combiner) Run() (int, error) {
	docs, err := ReadCleanDir(c.cleanDir)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		slog.Warn("No clean documents to combine", "dir", c.cleanDir)
		return 0, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		line, err := json.Marshal(c.corpusLine(doc))
		if err != nil {
			return 0, fmt.Errorf("failed to encode corpus line %s: %w", doc.Fingerprint, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := writeRaw(c.corpusPath, buf.Bytes()); err != nil {
		return 0, err
	}

	slog.Info("Corpus combined", "path", c.corpusPath, "documents", len(docs))
	return len(docs), nil
}

func (c *Combiner) corpusLine(doc CleanDoc) CorpusLine {
	date := doc.ApprovalDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	// Markdown image tags carry no text and break ingestion
	content := strings.TrimSpace(imageTags.ReplaceAllString(doc.Corpus, ""))

	return CorpusLine{
		Content:     content,
		Source:      c.sourceTag,
		URL:         doc.DetailURL,
		Date:        date,
		Version:     "1.0",
		Title:       doc.Name,
		Description: doc.Description,
		Fingerprint: doc.Fingerprint,
	}
}

// writeRaw writes bytes with the same temp-and-rename discipline as
// writeJSON.
func writeRaw(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".corpus-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp corpus file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write corpus file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync corpus file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close corpus file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace corpus file: %w", err)
	}

	return nil
}

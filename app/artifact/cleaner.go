package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// cutoffPatterns mark the end of useful content in an announcement.
// The matching line and everything after it is regulatory trailer
// text (review-program and designation notes), not announcement body.
var cutoffPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)this review.*used.*assessment aid`),
	regexp.MustCompile(`(?i)this review was conducted.*assessment aid`),
	regexp.MustCompile(`(?i)this review used.*real-time oncology review`),
	regexp.MustCompile(`(?i)this review used.*rtor`),
	regexp.MustCompile(`(?i)this review was conducted under project orbis`),
	regexp.MustCompile(`(?i)the application was granted.*breakthrough`),
	regexp.MustCompile(`(?i)the application was granted.*orphan`),
	regexp.MustCompile(`(?i)granted.*priority review`),
	regexp.MustCompile(`(?i)granted.*breakthrough designation`),
	regexp.MustCompile(`(?i)granted.*orphan drug designation`),
	regexp.MustCompile(`(?i)received.*priority review`),
	regexp.MustCompile(`(?i)received.*breakthrough designation`),
	regexp.MustCompile(`(?i)received.*orphan drug designation`),
}

// boilerplatePatterns drop single lines. Anchored to the line start
// so dosage and efficacy sentences that merely mention these phrases
// survive.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^follow the oncology center of excellence`),
	regexp.MustCompile(`(?i)^follow us on x`),
	regexp.MustCompile(`(?i)^healthcare professionals should report all serious adverse events`),
	regexp.MustCompile(`(?i)^full prescribing information for\s`),
	regexp.MustCompile(`(?i)^view full prescribing information for\s`),
	regexp.MustCompile(`(?i)^see full prescribing information for\s`),
	regexp.MustCompile(`(?i)^for assistance with single-patient inds for investigational oncology products`),
	regexp.MustCompile(`(?i)^fda expedited programs are described in the guidance`),
	regexp.MustCompile(`(?i)^a description of fda expedited programs is in the guidance`),
	regexp.MustCompile(`(?i)^for information on the covid-19 pandemic`),
	regexp.MustCompile(`(?i)^fda: coronavirus disease 2019 \(covid-19\)`),
	regexp.MustCompile(`(?i)^cdc: coronavirus \(covid-19\)`),
}

// standaloneHeaders are section headings repeated by the site
// template; on their own line they carry no content.
var standaloneHeaders = []string{
	"Efficacy and Safety",
	"Recommended Dosage",
	"Expedited Programs",
}

var (
	unicodeReplacer = strings.NewReplacer(
		"–", "-", // en dash
		"—", "-", // em dash
		"−", "-", // minus sign
		"‘", "'", // left single quote
		"’", "'", // right single quote
		"“", `"`, // left double quote
		"”", `"`, // right double quote
	)
	spaceRuns = regexp.MustCompile(` +`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// CleanCorpus reduces raw announcement text to its corpus: trailer
// text is cut off, boilerplate lines and repeated headings dropped,
// unicode punctuation and whitespace normalized. Blank lines survive
// only directly after a line that introduces a list.
func CleanCorpus(text string) string {
	if text == "" {
		return ""
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if line == "" {
			if len(kept) > 0 && strings.HasSuffix(kept[len(kept)-1], ":") {
				kept = append(kept, "")
			}
			continue
		}

		if matchesAny(cutoffPatterns, line) {
			// A trailer hit directly after a list introduction is
			// dropped alone; anywhere else it ends the document
			if len(kept) > 0 && strings.HasSuffix(kept[len(kept)-1], ":") {
				continue
			}
			break
		}

		if matchesAny(boilerplatePatterns, line) {
			continue
		}
		if slices.Contains(standaloneHeaders, line) {
			continue
		}

		kept = append(kept, line)
	}

	cleaned := strings.Join(kept, "\n")
	cleaned = unicodeReplacer.Replace(cleaned)
	cleaned = spaceRuns.ReplaceAllString(cleaned, " ")
	cleaned = blankRuns.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

func matchesAny(patterns []*regexp.Regexp, line string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// CleanDoc is a record prepared for corpus use: the raw full text is
// replaced by its cleaned corpus and the retrieval timestamp dropped.
type CleanDoc struct {
	Fingerprint  string `json:"fingerprint"`
	Name         string `json:"name"`
	ApprovalDate string `json:"approval_date"`
	DetailURL    string `json:"detail_url"`
	Description  string `json:"description"`
	Corpus       string `json:"corpus"`
}

// Cleaner writes one clean document per record into a directory,
// named by fingerprint so re-cleaning overwrites in place.
type Cleaner struct {
	dir string
}

func NewCleaner(dir string) *Cleaner {
	return &Cleaner{dir: dir}
}

func (c *Cleaner) Run(records []Record) (int, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create clean directory: %w", err)
	}

	written := 0
	for _, record := range records {
		doc := CleanDoc{
			Fingerprint:  record.Fingerprint,
			Name:         record.Name,
			ApprovalDate: record.ApprovalDate,
			DetailURL:    record.DetailURL,
			Description:  record.Description,
			Corpus:       CleanCorpus(record.FullText),
		}

		path := filepath.Join(c.dir, record.Fingerprint+".json")
		if err := writeJSON(path, doc); err != nil {
			return written, fmt.Errorf("failed to write clean document %s: %w", record.Fingerprint, err)
		}
		written++
	}

	slog.Info("Clean documents written", "dir", c.dir, "count", written)
	return written, nil
}

// ReadCleanDir loads every clean document in the directory in
// filename order.
func ReadCleanDir(dir string) ([]CleanDoc, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list clean documents: %w", err)
	}

	docs := make([]CleanDoc, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read clean document: %w", err)
		}

		var doc CleanDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse clean document %s: %w", file, err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mkazmer/approval-watch/app/fetch"
)

// Crawl pipeline types

// Candidate is one row parsed from the source listing, before detail
// enrichment. Exists only during a single run.
type Candidate struct {
	Name         string
	ApprovalDate string
	DetailURL    string
	Description  string
}

// Document is a Candidate enriched with the full text of its detail
// page. Immutable once built.
type Document struct {
	Candidate
	FullText    string
	RetrievedAt time.Time
}

// Record is a Document plus its content fingerprint, the identifier
// downstream systems deduplicate on.
type Record struct {
	Document
	Fingerprint string
}

// Outcome classifies a completed run.
type Outcome string

const (
	// OutcomeInitialLoad means the master store was empty at the start
	// of the run; every scraped candidate is new.
	OutcomeInitialLoad Outcome = "initial_load"
	// OutcomeDeltaUpdate means at least one unseen record was found.
	OutcomeDeltaUpdate Outcome = "delta_update"
	// OutcomeSynchronized means the store already covers the listing.
	OutcomeSynchronized Outcome = "synchronized"
)

// SourceKind selects the listing format.
type SourceKind string

const (
	KindListing SourceKind = "listing"
	KindFeed    SourceKind = "feed"
)

// ParseError marks pages whose structure did not match expectations.
type ParseError struct {
	URL     string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Message)
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Kind     SourceKind     `yaml:"kind"`
	Settings ConfigSettings `yaml:"settings"`
	Limits   ConfigLimits   `yaml:"limits"`
	Filters  []ConfigFilter `yaml:"filters"`
	Output   ConfigOutput   `yaml:"output"`
}

type ConfigSettings struct {
	Enabled       bool     `yaml:"enabled"`
	CheckInterval int      `yaml:"check_interval"` // seconds
	Timeout       int      `yaml:"timeout"`        // seconds, listing fetch
	DetailTimeout int      `yaml:"detail_timeout"` // seconds, detail-page fetch
	MinTextLength int      `yaml:"min_text_length"`
	FeedItems     int      `yaml:"feed_items"` // documents served in the RSS rendition
	Selectors     []string `yaml:"selectors"`  // detail content containers, tried in order
}

type ConfigLimits struct {
	MaxAttempts     int    `yaml:"max_attempts"`
	RetryDelayMs    int    `yaml:"retry_delay_ms"`
	StandardDelayMs int    `yaml:"standard_delay_ms"`
	DetailDelayMs   int    `yaml:"detail_delay_ms"`
	DetailPattern   string `yaml:"detail_pattern"`
	BatchSize       int    `yaml:"batch_size"`
	BatchPauseMs    int    `yaml:"batch_pause_ms"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

type ConfigOutput struct {
	Dir       string `yaml:"dir"`        // defaults to <data dir>/<source name>
	Master    string `yaml:"master"`     // master store filename
	Clean     bool   `yaml:"clean"`      // run the cleaner after a successful run
	Combine   bool   `yaml:"combine"`    // combine cleaned documents into a corpus file
	SourceTag string `yaml:"source_tag"` // source label stamped into corpus lines
}

// RetryPolicy translates the configured limits for the fetch client.
func (c *Config) RetryPolicy() fetch.RetryPolicy {
	return fetch.RetryPolicy{
		MaxAttempts: c.Limits.MaxAttempts,
		BaseDelay:   time.Duration(c.Limits.RetryDelayMs) * time.Millisecond,
	}
}

// LimitPolicy translates the configured delays for the rate limiter.
func (c *Config) LimitPolicy() fetch.LimitPolicy {
	return fetch.LimitPolicy{
		Standard:        time.Duration(c.Limits.StandardDelayMs) * time.Millisecond,
		Extended:        time.Duration(c.Limits.DetailDelayMs) * time.Millisecond,
		ExtendedPattern: c.Limits.DetailPattern,
	}
}

func (c *Config) BatchPause() time.Duration {
	return time.Duration(c.Limits.BatchPauseMs) * time.Millisecond
}

// OutputDir resolves where this source's files live.
func (c *Config) OutputDir(dataDir string) string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return filepath.Join(dataDir, c.Name)
}

func (c *Config) MasterPath(dataDir string) string {
	return filepath.Join(c.OutputDir(dataDir), c.Output.Master)
}

func (c *Config) CleanDir(dataDir string) string {
	return filepath.Join(c.OutputDir(dataDir), "clean")
}

func (c *Config) CorpusPath(dataDir string) string {
	return filepath.Join(c.OutputDir(dataDir), "corpus.jsonl")
}

func (c *Config) LockPath(dataDir string) string {
	return filepath.Join(c.OutputDir(dataDir), "run.lock")
}

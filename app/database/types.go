package database

import (
	"time"
)

type Source struct {
	Name          string // Configuration source identifier derived from filename
	URL           string // Listing URL from configuration
	Kind          string // listing or feed
	Enabled       bool
	LastCheckedAt *time.Time
	NextCheckAt   *time.Time
	LastOutcome   string // initial_load, delta_update, synchronized, failed or '' before the first run
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Run struct {
	ID           string
	SourceName   string
	Outcome      string
	Candidates   int
	Known        int
	Filtered     int
	Duplicates   int
	Skipped      int
	Accepted     int
	ArtifactPath string // '' when the run produced no artifact (synchronized)
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

type Document struct {
	ID           string
	SourceName   string
	Fingerprint  string
	Name         string
	ApprovalDate string
	DetailURL    string
	Description  string
	FullText     string
	RunID        string // Run that first archived or last refreshed the document
	RetrievedAt  time.Time
	CreatedAt    time.Time
}

package database

import (
	"time"
)

type SourceRepository interface {
	GetSource(name string) (*Source, error)
	GetSources() ([]Source, error)
	GetSourceCount() (int, error)
	GetSourcesDueForCheck() ([]Source, error)

	UpsertSource(name, url, kind string, enabled bool) error
	UpdateSourceStatus(name, outcome, errMsg string, checkedAt, nextCheck time.Time) error
}

type RunRepository interface {
	RecordRun(run Run) (string, error)
	GetRecentRuns(sourceName string, limit int) ([]Run, error)
	GetRunCount() (int, error)
}

type DocumentRepository interface {
	GetDocuments(sourceName string, limit int) ([]Document, error)
	GetAllDocuments(sourceName string) ([]Document, error)
	GetDocumentCount(sourceName string) (int, error)
	GetDocumentTotal() (int, error)

	UpsertDocument(doc Document) error
}

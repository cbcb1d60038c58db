package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mkazmer/approval-watch/app/watch"
)

const (
	InitialLoadFile = "initial_load.json"
	DeltaUpdateFile = "delta_update.json"
)

// Record is the downstream-facing shape of an accepted document, the
// unit both run artifacts and the clean/combine steps work on.
type Record struct {
	Fingerprint  string    `json:"fingerprint"`
	Name         string    `json:"name"`
	ApprovalDate string    `json:"approval_date"`
	DetailURL    string    `json:"detail_url"`
	Description  string    `json:"description"`
	FullText     string    `json:"full_text"`
	RetrievedAt  time.Time `json:"retrieved_at"`
}

// FromRun converts a run's accepted records into artifact records.
func FromRun(records []watch.Record) []Record {
	out := make([]Record, len(records))
	for i, record := range records {
		out[i] = Record{
			Fingerprint:  record.Fingerprint,
			Name:         record.Name,
			ApprovalDate: record.ApprovalDate,
			DetailURL:    record.DetailURL,
			Description:  record.Description,
			FullText:     record.FullText,
			RetrievedAt:  record.RetrievedAt,
		}
	}
	return out
}

// Writer persists run artifacts into a source's output directory.
// The directory reflects the latest run only: at most one of
// initial_load.json and delta_update.json exists afterwards.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write stores the records under the filename matching the outcome
// and removes the artifact the outcome did not produce. Synchronized
// runs, and runs that accepted nothing, leave the directory without
// any artifact. Returns the written path, or "" when there is none.
func (w *Writer) Write(outcome watch.Outcome, records []Record) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	name := ""
	if len(records) > 0 {
		switch outcome {
		case watch.OutcomeInitialLoad:
			name = InitialLoadFile
		case watch.OutcomeDeltaUpdate:
			name = DeltaUpdateFile
		}
	}

	for _, stale := range []string{InitialLoadFile, DeltaUpdateFile} {
		if stale == name {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, stale)); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to remove stale artifact: %w", err)
		}
	}

	if name == "" {
		return "", nil
	}

	path := filepath.Join(w.dir, name)
	if err := writeJSON(path, records); err != nil {
		return "", err
	}

	slog.Info("Artifact written", "path", path, "records", len(records))
	return path, nil
}

// ReadArtifact loads the records of a previously written artifact.
func ReadArtifact(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return records, nil
}

// writeJSON writes through a temp file in the same directory followed
// by an atomic rename, so readers never see a partial file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync artifact file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}

	return nil
}

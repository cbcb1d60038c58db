package database

import (
	"fmt"

	"github.com/google/uuid"
)

// SQLRunRepository handles database operations for archived runs
type SQLRunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

// RecordRun archives one completed run and returns its identifier
func (r *SQLRunRepository) RecordRun(run Run) (string, error) {
	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO runs (
			id, source_name, outcome, candidates, known, filtered,
			duplicates, skipped, accepted, artifact_path, error,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, run.SourceName, run.Outcome, run.Candidates, run.Known, run.Filtered,
		run.Duplicates, run.Skipped, run.Accepted, run.ArtifactPath, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC())

	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	return id, nil
}

// GetRecentRuns returns the most recent runs for a source, newest first
func (r *SQLRunRepository) GetRecentRuns(sourceName string, limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, source_name, outcome, candidates, known, filtered,
		       duplicates, skipped, accepted, artifact_path, error,
		       started_at, finished_at
		FROM runs
		WHERE source_name = ?
		ORDER BY datetime(started_at) DESC
		LIMIT ?
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		err := rows.Scan(
			&run.ID, &run.SourceName, &run.Outcome, &run.Candidates, &run.Known,
			&run.Filtered, &run.Duplicates, &run.Skipped, &run.Accepted,
			&run.ArtifactPath, &run.Error, &run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// GetRunCount returns the total number of archived runs
func (r *SQLRunRepository) GetRunCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get run count: %w", err)
	}
	return count, nil
}

package database

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLSourceRepository handles database operations for watched sources
type SQLSourceRepository struct {
	db *DB
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *DB) *SQLSourceRepository {
	return &SQLSourceRepository{db: db}
}

// UpsertSource inserts or updates a source from its configuration
func (r *SQLSourceRepository) UpsertSource(name, url, kind string, enabled bool) error {
	_, err := r.db.Exec(`
		INSERT INTO sources (name, url, kind, enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			kind = excluded.kind,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`, name, url, kind, enabled)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// GetSource retrieves a source by name, or nil when it is not archived yet
func (r *SQLSourceRepository) GetSource(name string) (*Source, error) {
	var source Source
	err := r.db.QueryRow(`
		SELECT name, url, kind, enabled, last_checked_at, next_check_at,
		       last_outcome, last_error, created_at, updated_at
		FROM sources
		WHERE name = ?
	`, name).Scan(
		&source.Name, &source.URL, &source.Kind, &source.Enabled,
		&source.LastCheckedAt, &source.NextCheckAt,
		&source.LastOutcome, &source.LastError,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// GetSources returns all archived sources ordered by name
func (r *SQLSourceRepository) GetSources() ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT name, url, kind, enabled, last_checked_at, next_check_at,
		       last_outcome, last_error, created_at, updated_at
		FROM sources
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var source Source
		err := rows.Scan(
			&source.Name, &source.URL, &source.Kind, &source.Enabled,
			&source.LastCheckedAt, &source.NextCheckAt,
			&source.LastOutcome, &source.LastError,
			&source.CreatedAt, &source.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// GetSourceCount returns the number of archived sources
func (r *SQLSourceRepository) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

// GetSourcesDueForCheck returns enabled sources whose next check time has passed
func (r *SQLSourceRepository) GetSourcesDueForCheck() ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT name, url, kind, enabled, last_checked_at, next_check_at,
		       last_outcome, last_error, created_at, updated_at
		FROM sources
		WHERE enabled = 1
		  AND (next_check_at IS NULL OR datetime(next_check_at) <= datetime('now'))
		ORDER BY COALESCE(datetime(next_check_at), '1970-01-01')
		LIMIT 50
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources due for check: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var source Source
		err := rows.Scan(
			&source.Name, &source.URL, &source.Kind, &source.Enabled,
			&source.LastCheckedAt, &source.NextCheckAt,
			&source.LastOutcome, &source.LastError,
			&source.CreatedAt, &source.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// UpdateSourceStatus records the outcome of a completed check and schedules the next one
func (r *SQLSourceRepository) UpdateSourceStatus(name, outcome, errMsg string, checkedAt, nextCheck time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET last_checked_at = ?, next_check_at = ?, last_outcome = ?, last_error = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, checkedAt.UTC(), nextCheck.UTC(), outcome, errMsg, name)

	if err != nil {
		return fmt.Errorf("failed to update source status: %w", err)
	}

	return nil
}

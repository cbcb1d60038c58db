package database

import (
	"fmt"

	"github.com/google/uuid"
)

// SQLDocumentRepository handles database operations for archived documents
type SQLDocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB) *SQLDocumentRepository {
	return &SQLDocumentRepository{db: db}
}

// UpsertDocument archives an accepted record. A document that is
// scraped again under the same fingerprint refreshes in place.
func (r *SQLDocumentRepository) UpsertDocument(doc Document) error {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO documents (
			id, source_name, fingerprint, name, approval_date, detail_url,
			description, full_text, run_id, retrieved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_name, fingerprint) DO UPDATE SET
			name = excluded.name,
			approval_date = excluded.approval_date,
			detail_url = excluded.detail_url,
			description = excluded.description,
			full_text = excluded.full_text,
			run_id = excluded.run_id,
			retrieved_at = excluded.retrieved_at
	`, id, doc.SourceName, doc.Fingerprint, doc.Name, doc.ApprovalDate,
		doc.DetailURL, doc.Description, doc.FullText, doc.RunID,
		doc.RetrievedAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// GetDocuments returns the most recently retrieved documents for a source
func (r *SQLDocumentRepository) GetDocuments(sourceName string, limit int) ([]Document, error) {
	rows, err := r.db.Query(`
		SELECT id, source_name, fingerprint, name, approval_date, detail_url,
		       description, full_text, run_id, retrieved_at, created_at
		FROM documents
		WHERE source_name = ?
		ORDER BY datetime(retrieved_at) DESC, fingerprint
		LIMIT ?
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		var doc Document
		err := rows.Scan(
			&doc.ID, &doc.SourceName, &doc.Fingerprint, &doc.Name,
			&doc.ApprovalDate, &doc.DetailURL, &doc.Description, &doc.FullText,
			&doc.RunID, &doc.RetrievedAt, &doc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return documents, nil
}

// GetAllDocuments returns every archived document for a source
func (r *SQLDocumentRepository) GetAllDocuments(sourceName string) ([]Document, error) {
	rows, err := r.db.Query(`
		SELECT id, source_name, fingerprint, name, approval_date, detail_url,
		       description, full_text, run_id, retrieved_at, created_at
		FROM documents
		WHERE source_name = ?
		ORDER BY datetime(retrieved_at) DESC, fingerprint
	`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get all documents: %w", err)
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		var doc Document
		err := rows.Scan(
			&doc.ID, &doc.SourceName, &doc.Fingerprint, &doc.Name,
			&doc.ApprovalDate, &doc.DetailURL, &doc.Description, &doc.FullText,
			&doc.RunID, &doc.RetrievedAt, &doc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return documents, nil
}

// GetDocumentCount returns the number of archived documents for a source
func (r *SQLDocumentRepository) GetDocumentCount(sourceName string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM documents WHERE source_name = ?", sourceName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get document count: %w", err)
	}
	return count, nil
}

// GetDocumentTotal returns the number of archived documents across all sources
func (r *SQLDocumentRepository) GetDocumentTotal() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get document total: %w", err)
	}
	return count, nil
}

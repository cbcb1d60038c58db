package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

var fileHeader = []string{"fingerprint", "name", "approval_date", "detail_url", "first_seen_at"}

// FileStore persists entries as a CSV table, one row per accepted
// record. Every append rewrites the table through a temp file in the
// same directory followed by an atomic rename, so a crash mid-write
// leaves the previous contents intact.
type FileStore struct {
	path    string
	entries []Entry
	known   map[string]struct{}
	loaded  bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the table from disk. A missing file is an empty store,
// not an error: the first run bootstraps it.
func (s *FileStore) Load() (int, error) {
	s.entries = nil
	s.known = make(map[string]struct{})

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.loaded = true
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open master store: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read master store %s: %w", s.path, err)
	}

	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == fileHeader[0] {
			continue
		}
		if len(row) < 5 {
			continue
		}
		if _, ok := s.known[row[0]]; ok {
			continue
		}

		firstSeen, _ := time.Parse(time.RFC3339, row[4])
		s.entries = append(s.entries, Entry{
			Fingerprint:  row[0],
			Name:         row[1],
			ApprovalDate: row[2],
			DetailURL:    row[3],
			FirstSeenAt:  firstSeen,
		})
		s.known[row[0]] = struct{}{}
	}

	s.loaded = true
	return len(s.known), nil
}

func (s *FileStore) Contains(fingerprint string) bool {
	_, ok := s.known[fingerprint]
	return ok
}

func (s *FileStore) Count() int {
	return len(s.known)
}

// Entries returns a copy of the loaded entries in file order.
func (s *FileStore) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Append adds the entry and rewrites the table. On write failure the
// in-memory state is rolled back so the store stays consistent with
// disk.
func (s *FileStore) Append(entry Entry) error {
	if !s.loaded {
		return fmt.Errorf("master store not loaded: %s", s.path)
	}
	if _, ok := s.known[entry.Fingerprint]; ok {
		return ErrDuplicate
	}

	s.entries = append(s.entries, entry)
	s.known[entry.Fingerprint] = struct{}{}

	if err := s.flush(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		delete(s.known, entry.Fingerprint)
		return err
	}

	return nil
}

func (s *FileStore) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	// Temp file in the same directory so the rename cannot cross
	// filesystems.
	tmp, err := os.CreateTemp(dir, ".master-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(fileHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store header: %w", err)
	}
	for _, e := range s.entries {
		row := []string{e.Fingerprint, e.Name, e.ApprovalDate, e.DetailURL, e.FirstSeenAt.Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write store row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush store rows: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close store file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace master store: %w", err)
	}

	return nil
}

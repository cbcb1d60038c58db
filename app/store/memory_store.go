package store

// MemoryStore keeps entries in memory only. Used in tests in place of
// FileStore.
type MemoryStore struct {
	entries []Entry
	known   map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{known: make(map[string]struct{})}
}

func (s *MemoryStore) Load() (int, error) {
	return len(s.known), nil
}

func (s *MemoryStore) Contains(fingerprint string) bool {
	_, ok := s.known[fingerprint]
	return ok
}

func (s *MemoryStore) Count() int {
	return len(s.known)
}

func (s *MemoryStore) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemoryStore) Append(entry Entry) error {
	if _, ok := s.known[entry.Fingerprint]; ok {
		return ErrDuplicate
	}
	s.entries = append(s.entries, entry)
	s.known[entry.Fingerprint] = struct{}{}
	return nil
}

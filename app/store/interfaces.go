package store

import "errors"

// ErrDuplicate is returned by Append when the fingerprint is already
// present. Callers check membership first; hitting this is a logic
// bug, not a data condition.
var ErrDuplicate = errors.New("fingerprint already present in store")

// Store is the persistent set of previously accepted records. The set
// of fingerprints only grows; no entry is ever mutated in place.
// Implementations are single-writer: overlapping runs against the same
// store must be excluded by a run lock.
type Store interface {
	// Load reads the persisted entries into memory so membership
	// checks during a run need no further I/O. Must be called before
	// Contains or Append. Returns the number of known fingerprints.
	Load() (int, error)

	Contains(fingerprint string) bool

	// Append persists a new entry durably before returning.
	Append(entry Entry) error

	Count() int
}

package store

import "time"

// Entry is the persisted record of an accepted document, keyed by
// fingerprint. Entries are never updated or removed once written.
type Entry struct {
	Fingerprint  string
	Name         string
	ApprovalDate string
	DetailURL    string
	FirstSeenAt  time.Time
}

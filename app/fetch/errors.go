package fetch

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes failures that are worth retrying from those
// that are not.
type ErrorKind string

const (
	// KindTransient covers network errors, timeouts, rate limiting and
	// server errors. Retried up to the configured attempt ceiling.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers malformed URLs and client errors other than
	// rate limiting. Never retried.
	KindPermanent ErrorKind = "permanent"
)

// Error is the typed failure returned by Client so callers can decide
// to skip a candidate instead of aborting the run.
type Error struct {
	URL     string
	Kind    ErrorKind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Message, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is a fetch failure that was retried
// and may succeed later.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTransient
}

// IsPermanent reports whether err is a fetch failure that retrying
// cannot fix.
func IsPermanent(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindPermanent
}

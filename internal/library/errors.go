package library

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidRange is returned when the request's start date is after its end date.
	ErrInvalidRange = errors.New("start date is after end date")

	// ErrUpstreamUnavailable is returned when an upstream call keeps failing
	// after the retry budget is spent. The whole aggregation fails.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedEntry marks a feed item without an ID or save timestamp.
	// Such items are skipped, never returned to callers.
	ErrMalformedEntry = errors.New("malformed library entry")
)

// UpstreamError describes a failed upstream operation.
type UpstreamError struct {
	Op       string // "saved tracks", "audio features", "artist genres"
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s failed after %d attempt(s): %v", ErrUpstreamUnavailable, e.Op, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports ErrUpstreamUnavailable as a match.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the retry loop gives up immediately.
// Upstream adapters use it for failures a retry cannot fix, such as a revoked scope.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

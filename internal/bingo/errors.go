package bingo

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories produced by the content
// and redirect collaborators. Retry policy dispatches on it: network and
// server-class failures are transient, everything else is not.
type ErrorKind string

// Failure categories.
const (
	ErrNetwork    ErrorKind = "network"
	ErrHTTPClient ErrorKind = "http_client"
	ErrHTTPServer ErrorKind = "http_server"
	ErrTimeout    ErrorKind = "timeout"
	ErrNotFound   ErrorKind = "not_found"
	ErrParse      ErrorKind = "parse"
)

// ErrStale marks a fetch attempt whose target no longer matches the
// session's live navigation target; its result must be discarded, not
// treated as a load failure.
var ErrStale = errors.New("navigation target changed")

// ErrSnapshotNotFound is returned by SessionStore implementations when no
// snapshot exists under the requested id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// FetchError is the tagged failure returned by content and redirect
// collaborators. StatusCode is zero unless Kind is an HTTP class.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Title      string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %q: %s (status %d): %v", e.Title, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %q: %s: %v", e.Title, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying at the same
// endpoint.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case ErrNetwork, ErrHTTPServer:
		return true
	default:
		return false
	}
}

// ClassifyStatus maps an HTTP status code onto an ErrorKind. A 404 is
// reported as NotFound rather than a generic client error so callers can
// distinguish a missing article from a bad request.
func ClassifyStatus(code int) ErrorKind {
	switch {
	case code == 404:
		return ErrNotFound
	case code >= 400 && code < 500:
		return ErrHTTPClient
	case code >= 500 && code < 600:
		return ErrHTTPServer
	default:
		return ErrParse
	}
}

// KindOf extracts the ErrorKind from err, or empty string when err carries
// no FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsTransient reports whether err should be retried at the same endpoint.
// Unclassified errors are treated as transient network faults.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient()
	}
	return true
}

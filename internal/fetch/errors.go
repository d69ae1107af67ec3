package fetch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed fetch. None of these are retried by the
// handler itself; retry policy belongs to the orchestrator.
type ErrorKind string

// Fetch failure kinds.
const (
	KindTimeout          ErrorKind = "timeout"
	KindTooLarge         ErrorKind = "too_large"
	KindTooManyRedirects ErrorKind = "too_many_redirects"
	KindDisallowedTarget ErrorKind = "disallowed_target"
	KindTransport        ErrorKind = "transport"
	KindHTTPStatus       ErrorKind = "http_status"
)

// Error is the typed failure returned by Handler.Fetch.
type Error struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	cause      error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	case e.cause != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, url string, cause error) *Error {
	return &Error{Kind: kind, URL: url, cause: cause}
}

// KindOf extracts the fetch error kind, or "" for non-fetch errors.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

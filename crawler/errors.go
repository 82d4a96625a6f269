package crawler

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for any return format other than html.
var ErrUnsupportedFormat = errors.New("unsupported return format")

// StatusError is a non-success HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// FetchError reports a URL that could not be fetched within the retry
// policy. Err is the last failure.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

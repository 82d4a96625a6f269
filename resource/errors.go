package resource

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Acquire after the manager has been released.
var ErrClosed = errors.New("resource manager closed")

// AcquisitionError reports that the resource could not be created within
// the retry policy. Err is the last creation failure.
type AcquisitionError struct {
	Attempts int
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("resource acquisition failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

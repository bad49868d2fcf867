// Package fetcher holds the error types shared by page fetcher implementations.
package fetcher

import (
	"errors"
	"fmt"
)

// ErrUnrecoverable marks a fetch that can never succeed as configured, such
// as a malformed or non-HTTP URL.
var ErrUnrecoverable = errors.New("unrecoverable fetch")

// FetchError describes a failed page retrieval. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

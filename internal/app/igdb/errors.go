package igdb

import (
	"errors"
	"fmt"
)

// ErrNotFound is reported for an id whose catalog response held no game.
var ErrNotFound = errors.New("game not found")

// InvalidQueryError means a query URL could not be built. No request was sent.
type InvalidQueryError struct {
	Kind   QueryKind
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid %s query: %s", e.Kind, e.Reason)
}

// TransportError is a network failure or a non-2xx response from the catalog.
// StatusCode is zero when no response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog request %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the catalog response was not a JSON array.
type MalformedResponseError struct {
	URL string
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an item doesn't exist.
	ErrNotFound = errors.New("store: item not found")

	// ErrInvalidToken is returned when a continuation token cannot be decoded.
	ErrInvalidToken = errors.New("store: invalid continuation token")

	// ErrUnknownObjectType is returned when decoding a row whose object_type has no schema.
	ErrUnknownObjectType = errors.New("store: unknown object type")
)

// BatchError reports the rows of a batch write that were still failing after
// every retry. Rows not listed were written.
type BatchError struct {
	// Failed lists the keys of puts and deletes that were not applied.
	Failed []Key

	// Err is the last error seen while retrying.
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("store: %d batch writes failed: %v", len(e.Failed), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Contains reports whether key is among the failed rows.
func (e *BatchError) Contains(key Key) bool {
	for _, k := range e.Failed {
		if k == key {
			return true
		}
	}
	return false
}

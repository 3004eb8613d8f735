// Package service implements the metadata synchronization, caching and
// pagination engine together with the storage tier state machine.
package service

import "errors"

var (
	// ErrFileNotFound means an identifier didn't map to any existing,
	// complete record or store object
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidTier rejects tier values before any store interaction
	ErrInvalidTier = errors.New("invalid tier")

	// ErrInvalidCursor rejects cursors that don't decode to a position
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrMetadataFetch is a transient store failure. Retried once at the
	// point of use, after that the record is dropped from the result
	ErrMetadataFetch = errors.New("metadata fetch failed")
)

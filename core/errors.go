package core

import "errors"

var (
	// ErrStorageFull is returned by storage adapters when a write exceeds capacity.
	ErrStorageFull = errors.New("storage full")
	// ErrInvalidPartition reports an empty or malformed game type or difficulty.
	ErrInvalidPartition = errors.New("invalid partition")
	// ErrInvalidQuery reports an unknown sort key, sort order or a malformed filter.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidScore reports a score that is not a finite number.
	ErrInvalidScore = errors.New("invalid score")
)

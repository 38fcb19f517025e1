package repository

import "errors"

// Sentinel kinds for store errors. Domain invariant violations surface as the
// model package's kinds; these cover storage-level conditions only.
var (
	ErrVersionConflict = errors.New("version conflict")
	ErrClosed          = errors.New("store closed")
)

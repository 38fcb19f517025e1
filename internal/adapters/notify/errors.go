package notify

import "errors"

// Sentinel kinds for bus errors.
var (
	ErrBusClosed = errors.New("signal bus closed")
	ErrNoScopes  = errors.New("subscription requires at least one scope")
)

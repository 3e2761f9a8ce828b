package scoreboard

import "errors"

// Sentinel kinds for scoreboard errors.
var (
	// ErrNotClosed means the challenge is still accepting responses and
	// has no final standings yet.
	ErrNotClosed = errors.New("challenge not closed")
)

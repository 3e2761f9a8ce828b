package accumulator

import "errors"

// Sentinel kinds for accumulator errors.
var (
	// ErrContention means the bounded retry budget was spent on version
	// conflicts. Transient: the caller may retry the whole request.
	ErrContention = errors.New("submission contention")
)

package gateway

import "errors"

// Sentinel kinds for gateway errors.
var (
	ErrNoEndpoint     = errors.New("no endpoint configured")
	ErrDeliveryFailed = errors.New("delivery failed")
)

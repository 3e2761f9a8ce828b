package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("challenge not found")
	ErrExists          = errors.New("challenge already exists")
	ErrVersionConflict = errors.New("version conflict")
)

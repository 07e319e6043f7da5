package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when required input is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a write violates a store constraint.
	ErrConflict = errors.New("integrity conflict")
)

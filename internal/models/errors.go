package models

import "github.com/myrjola/manuscript/internal/errors"

var (
	// ErrNotFound is returned when an entity is missing from the expected parent scope.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrInvalidInput is returned for malformed requests before anything is persisted.
	ErrInvalidInput = errors.NewSentinel("invalid input")
	// ErrConflict is returned when a write collides with existing data, e.g. a registered email.
	ErrConflict = errors.NewSentinel("conflict")
)

package models

import "errors"

// Common errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrUnknownPlatform is returned when a platform identifier is not recognized
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrInvalidUUID is returned when a UUID is invalid
	ErrInvalidUUID = errors.New("invalid UUID")

	// ErrNoFieldsToUpdate is returned when no fields are provided for an update
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)

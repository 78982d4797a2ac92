package errors

import "errors"

var (
	ErrNotFound = errors.New("experience not found")

	ErrSlotNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid experience ID format")

	// ErrGuardFailed means the conditional slot update matched the
	// document but its guard predicate no longer held at write time.
	ErrGuardFailed = errors.New("slot update guard failed")
)

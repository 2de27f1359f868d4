package domain

import "errors"

var (
	// ErrBrokerUnavailable is returned after the connection manager exhausts its retries.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrInvalidTransition is returned for a state change the entity's state machine forbids.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidation is returned for malformed input, before any publish attempt.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedMessage marks an envelope that fails to parse or is schema-incompatible.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrNotFound is returned when an entity is not held locally.
	ErrNotFound = errors.New("not found")
)

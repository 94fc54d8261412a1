package store

import "errors"

var (
	// ErrNotFound is returned when a record does not resolve. Callers must
	// return it unchanged for records that exist in another company, so a
	// requester cannot distinguish "missing" from "not yours".
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when a user email is already registered
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrStaleStatus is returned by a conditional update whose expected
	// status no longer matches the stored one
	ErrStaleStatus = errors.New("expense status changed concurrently")

	// ErrUnavailable is returned on store timeouts and transient failures.
	// It is the only retryable error in the taxonomy.
	ErrUnavailable = errors.New("store unavailable")
)

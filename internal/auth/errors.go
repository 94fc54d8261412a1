package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. The two cases are indistinguishable on purpose.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDisabled is returned when a deactivated user authenticates
	ErrAccountDisabled = errors.New("account is deactivated")

	// ErrTokenInvalid is returned for malformed, tampered or expired tokens
	ErrTokenInvalid = errors.New("invalid token")
)

// Package common defines shared constants and sentinel errors used across
// the gophvault server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors.
	ErrValidation        = errors.New("validation error")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrConflict          = errors.New("already exists")

	// Secret cipher errors. The message is deliberately generic.
	ErrCrypto = errors.New("crypto operation failed")

	// Access token errors.
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")

	// Login / refresh errors.
	ErrAuthenticationFailed = errors.New("invalid username or password")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")

	// PIN gate errors.
	ErrPinNotSet        = errors.New("pin not set")
	ErrPinMismatch      = errors.New("pin mismatch")
	ErrInvalidPinFormat = errors.New("pin must be 4 to 6 digits")
)

// IsTokenError reports whether err is one of the access token verification
// failures that transports collapse into a single unauthenticated outcome.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked)
}

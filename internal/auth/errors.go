package auth

import "errors"

// Typed failures surfaced by the auth service. Handlers map each to a
// distinct HTTP status. ErrInvalidToken deliberately covers bad signature,
// wrong token type, expiry and revocation alike so callers cannot probe
// which check failed.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

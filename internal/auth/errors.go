package auth

import "errors"

// Flow outcomes callers can act on. Anything else returned by Service is an
// internal failure.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountNotVerified = errors.New("account not verified")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExpiredOTP         = errors.New("otp has expired")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidToken       = errors.New("invalid token")
)

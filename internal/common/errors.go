// Package common defines shared constants and sentinel errors used across
// client and server layers of flagkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrForbidden      = errors.New("forbidden")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Team membership errors.
	ErrNotOnTeam     = errors.New("you must be on a team to submit flags")
	ErrAlreadyOnTeam = errors.New("already on a team")

	// Submission errors. A duplicate solve is not an error and has no sentinel.
	ErrEmptyFlag      = errors.New("you must provide a flag")
	ErrIncorrectFlag  = errors.New("incorrect flag")
	ErrChallengeFault = errors.New("challenge evaluation failed")
)

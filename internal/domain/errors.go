package domain

import "errors"

// Terminal, user-visible failure kinds. Handlers map these to stable
// machine-readable codes; anything outside this set is an internal failure.
var (
	ErrDuplicateEmail      = errors.New("account already exists")
	ErrDuplicateUsername   = errors.New("username already taken")
	ErrUnknownUser         = errors.New("invalid credentials")
	ErrEmailNotConfirmed   = errors.New("email not confirmed")
	ErrBadPassword         = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUnauthorized        = errors.New("could not validate credentials")
	ErrVerification        = errors.New("verification error")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrNotFound            = errors.New("not found")
)

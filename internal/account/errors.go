package account

import "errors"

// Errors raised by the account index during login (spec.md §7). The
// session layer maps each to a version-specific rejection screen.
var (
	ErrMissingAccount     = errors.New("account: no matching credentials and creation not allowed")
	ErrIncorrectAccessKey = errors.New("account: access key does not match")
	ErrIncorrectPassword  = errors.New("account: password does not match")
	ErrAccountBanned      = errors.New("account: banned")
	ErrDuplicateKey       = errors.New("account: credential key already in use by another account")
	ErrNotFound           = errors.New("account: not found")
)

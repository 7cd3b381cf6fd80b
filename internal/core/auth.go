package core

import "errors"

var (
	ErrPasswordMismatch = errors.New("Passwords do not match")
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters")
)

// ValidateRegistration runs the pre-network registration checks.
// Mismatch is reported before length; both run before any API call.
func ValidateRegistration(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < 6 {
		return ErrPasswordTooShort
	}
	return nil
}

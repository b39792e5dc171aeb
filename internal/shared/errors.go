package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates the normalized email already belongs to an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrValidation marks input rejected before reaching the store.
	ErrValidation = errors.New("validation failed")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage converts an error into text that can be shown to end users.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested page could not be found."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, ErrEmailTaken):
		return "Email already registered."
	case errors.Is(err, ErrValidation):
		return "Please correct the highlighted fields."
	default:
		return "Something went wrong. Please try again."
	}
}

package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrInvalidCredentials indicates a login attempt with an unknown email
	// or a wrong password. Deliberately indistinct between the two cases.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountInactive indicates the account exists but has been
	// deactivated. API layer should map this to HTTP 403 Forbidden.
	ErrAccountInactive = errors.New("account is deactivated")

	// ErrProtectedAccount indicates an operation that is refused for admin
	// accounts, such as self-deactivation.
	// API layer should map this to HTTP 403 Forbidden.
	ErrProtectedAccount = errors.New("operation not permitted for admin accounts")

	// ErrAIDisabled indicates AI note features were requested but no LLM
	// is configured. API layer should map this to HTTP 503.
	ErrAIDisabled = errors.New("AI features are not configured")
)

package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Storage and API
// layers wrap these with context; callers test with errors.Is.

var (
	// Settlement errors
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrNoOutstandingDebt = errors.New("no outstanding debt in scope")

	// Storage errors
	ErrNotFound            = errors.New("record not found")
	ErrConstraint          = errors.New("constraint violation")
	ErrConcurrencyConflict = errors.New("concurrent settlement conflict")

	// Auth errors
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired or unknown")
)

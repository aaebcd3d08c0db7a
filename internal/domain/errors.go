package domain

import "errors"

var (
	// ErrValidation marks request-level validation failures.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrMigrationRequired marks store errors caused by missing tables,
	// so operators can tell misconfiguration apart from runtime failures.
	ErrMigrationRequired = errors.New("migration required")
	// ErrQuotaExceeded marks sends rejected by the daily message quota.
	ErrQuotaExceeded = errors.New("daily message limit exceeded")
)

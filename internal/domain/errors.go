package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Engine errors
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnrecognizedCategory = errors.New("unrecognized achievement category")
	ErrInvalidCatalog       = errors.New("invalid achievement catalog")

	// Lookup errors
	ErrUserNotFound         = errors.New("user not found")
	ErrHabitNotFound        = errors.New("habit not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// State errors
	ErrHabitArchived = errors.New("habit is archived")
)

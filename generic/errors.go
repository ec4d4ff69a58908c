/*
errors.go - Centralized error types

PURPOSE:
  All error types in one place for consistency and discoverability.
  The calculation engines (schedule, worktime, pricing) never return errors;
  these are raised by the collaborator layer around them: punch recording,
  vacation validation, stores and the HTTP API.

ERROR CATEGORIES:
  1. Validation errors - Bad client input (400)
  2. Lookup errors     - Missing records (404)
  3. Store errors      - Database-level failures (500)

USAGE:
    if errors.Is(err, generic.ErrEntityNotFound) {
        ...
    }

SEE ALSO:
  - api/handlers.go: Maps these to HTTP status codes
  - vacation/vacation.go: Half-day range rejection
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntityNotFound is returned when a referenced record doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidPeriod is returned when a range is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidInput is returned for malformed request values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrHalfDayRange is returned when a half-day vacation spans more than one day.
	ErrHalfDayRange = errors.New("half-day vacation must cover exactly one day")

	// ErrDayComplete is returned when all four punches of a day are recorded.
	ErrDayComplete = errors.New("all punches for this day are already recorded")

	// ErrDuplicateID is returned when a record with the same ID already exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrUnknownCard is returned when an NFC card is not bound to a user.
	ErrUnknownCard = errors.New("unknown nfc card")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the kind and key of the missing record.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEntityNotFound
}

// FieldError reports which request field failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrHalfDayRange) ||
		errors.Is(err, ErrDayComplete) ||
		errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrUnknownCard)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (shiftclose, reports) wrap these with extra context.

ERROR CATEGORIES:
  1. Close errors - Duplicate or incomplete shift closes
  2. Lookup errors - Missing accounts or shifts
  3. Input errors - Malformed ranges, unbalanced entries

RECOVERY MODEL:
  None of these are retryable: closes and queries are deterministic, so
  retrying with the same input reproduces the same error. Handlers map
  them to structured responses at the request boundary and never swallow
  them.

USAGE:
  if errors.Is(err, ledger.ErrAlreadyClosed) {
      // surface 409 to the operator
  }

SEE ALSO:
  - shiftclose/aggregator.go: Produces AlreadyClosed / IncompleteData
  - api/handlers.go: Maps the taxonomy to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadyClosed is returned when a shift-close snapshot already exists
	// for the (date, shift) pair. The operator must pick another target.
	ErrAlreadyClosed = errors.New("shift already closed")

	// ErrIncompleteData is returned when required dispenser readings are
	// missing at close time. The operator supplies them and resubmits.
	ErrIncompleteData = errors.New("incomplete shift data")

	// ErrAccountNotFound is returned for an unknown account reference.
	ErrAccountNotFound = errors.New("account not found")

	// ErrShiftNotFound is returned for an unknown shift reference.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrInvalidDateRange is returned when a range ends before it starts.
	// Rejected before any query executes.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrUnbalancedEntry is returned when a Dr/Cr pair does not balance or
	// targets a single account.
	ErrUnbalancedEntry = errors.New("unbalanced ledger entry")

	// ErrNegativeAmount is returned when a transaction amount is negative.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrStaleSnapshot is returned when entries land for a (date, shift)
	// between snapshot derivation and commit. The close is abandoned;
	// re-running it derives a fresh snapshot that includes them.
	ErrStaleSnapshot = errors.New("close snapshot is stale")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AlreadyClosedError reports which (date, shift) pair was already frozen.
type AlreadyClosedError struct {
	Date    time.Time
	ShiftID int64
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("shift %d already closed for %s", e.ShiftID, e.Date.Format("2006-01-02"))
}

func (e *AlreadyClosedError) Unwrap() error { return ErrAlreadyClosed }

// IncompleteDataError lists the dispensers without a submitted reading.
type IncompleteDataError struct {
	Date                time.Time
	ShiftID             int64
	MissingDispenserIDs []int64
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("shift %d on %s is missing readings for dispensers %v",
		e.ShiftID, e.Date.Format("2006-01-02"), e.MissingDispenserIDs)
}

func (e *IncompleteDataError) Unwrap() error { return ErrIncompleteData }

// AccountNotFoundError identifies the missing account.
type AccountNotFoundError struct {
	AccountID int64
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %d not found", e.AccountID)
}

func (e *AccountNotFoundError) Unwrap() error { return ErrAccountNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid operator input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrUnbalancedEntry) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrIncompleteData)
}

// IsConflict returns true if the error is a concurrent-state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyClosed) || errors.Is(err, ErrStaleSnapshot)
}

// IsNotFound returns true if the error indicates a missing reference.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrShiftNotFound)
}

/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP statuses; collaborator errors
  (database, transport) pass through unwrapped.

ERROR CATEGORIES:
  1. Lookup errors - Missing contract or payment
  2. Validation errors - Invalid amounts, balance misuse, double payment
  3. Generation errors - Installment schedule persistence failures

USAGE:
  Callers classify with errors.Is or the helpers below:

    if billing.IsClientError(err) {
        // 400-equivalent, never retried
    }

SEE ALSO:
  - money/money.go: ErrInvalidAmount origin
  - applicator.go: Produces these errors
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/warp/contract-engine/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrContractNotFound is returned when a referenced contract doesn't exist.
	ErrContractNotFound = errors.New("contract not found")

	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrAlreadyPaid is the idempotency guard against double payment of the
	// same installment.
	ErrAlreadyPaid = errors.New("payment already paid")

	// ErrInvalidAmount mirrors money.ErrInvalidAmount so callers can match
	// either; validation failures in this package wrap this one.
	ErrInvalidAmount = money.ErrInvalidAmount

	// ErrInsufficientBalance is returned when a payment tries to use more
	// credit than the contract's positive balance holds.
	ErrInsufficientBalance = errors.New("insufficient positive balance")

	// ErrScheduleGeneration is returned when persisting an installment plan
	// fails. Installments already written for the contract are rolled back
	// before this error surfaces; partial schedules never persist.
	ErrScheduleGeneration = errors.New("schedule generation failed")

	// ErrContractHasPayments is returned when deleting a contract that still
	// has installments. Payments must be deleted first.
	ErrContractHasPayments = errors.New("contract still has payments")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a credit-usage shortage.
type InsufficientBalanceError struct {
	ContractID string
	Available  money.Amount
	Requested  money.Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient positive balance on contract %s: available %s, requested %s",
		e.ContractID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ScheduleGenerationError details a failed schedule persistence, including
// whether the rollback of already-written installments succeeded.
type ScheduleGenerationError struct {
	ContractID string
	Cause      error
	RolledBack bool
}

func (e *ScheduleGenerationError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("schedule generation failed for contract %s (rolled back): %v", e.ContractID, e.Cause)
	}
	return fmt.Sprintf("schedule generation failed for contract %s (rollback also failed): %v", e.ContractID, e.Cause)
}

func (e *ScheduleGenerationError) Unwrap() error { return ErrScheduleGeneration }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
// These map to 400-equivalents and are never retried automatically.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrContractHasPayments)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

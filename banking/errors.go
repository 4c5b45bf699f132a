/*
errors.go - Centralized error types for the banking core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Messages keep the wording clients already depend on; callers should
  match with errors.Is / errors.As, never on the text.

ERROR CATEGORIES:
  1. Validation - missing/malformed fields, bad pagination, unknown channel
  2. Referential - unknown account, duplicate reference/account
  3. Business rule - fee exceeds amount, balance would go negative

  Every category is rejected before any mutation. An unknown reference in
  a status lookup is NOT an error (it is an INVALID response).

SEE ALSO:
  - api/handlers.go: Maps categories to HTTP status codes
*/
package banking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

// Validation errors.
var (
	ErrIbanRequired      = errors.New("account IBAN not provided")
	ErrNegativeFee       = errors.New("fee cannot be negative")
	ErrReferenceRequired = errors.New("reference not provided")
	ErrChannelRequired   = errors.New("channel not provided")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrInvalidTimeRange  = errors.New("initial time range is greater than final time range")
	ErrNegativePage      = errors.New("page number cannot be negative (first valid page is 0)")
	ErrInvalidPageSize   = errors.New("page size must be greater than 0")
	ErrNegativeBalance   = errors.New("balance cannot be negative")
	ErrSubCentAmount     = errors.New("amount has more precision than one cent")
	ErrMalformedAmount   = errors.New("amount is not a decimal number")
	ErrAmountOutOfRange  = errors.New("amount is out of range")
)

// Referential errors.
var (
	ErrAccountNotFound    = errors.New("account IBAN does not exist")
	ErrDuplicateReference = errors.New("provided reference is not available")
	ErrDuplicateAccount   = errors.New("provided IBAN is not available")
)

// Business rule errors.
var (
	ErrFeeExceedsAmount    = errors.New("fee cannot be greater than amount")
	ErrInsufficientBalance = errors.New("account would reach balance below 0")
	ErrBalanceOverflow     = errors.New("account balance would overflow")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError is returned when applying a transaction would
// leave the account below zero. Nothing was mutated.
type InsufficientBalanceError struct {
	AccountIban string
	Balance     int64
	Net         int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("transaction not accepted: %s (account %s, balance %d, net %d)",
		ErrInsufficientBalance, e.AccountIban, e.Balance, e.Net)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the request itself was malformed.
func IsValidation(err error) bool {
	return errors.Is(err, ErrIbanRequired) ||
		errors.Is(err, ErrNegativeFee) ||
		errors.Is(err, ErrReferenceRequired) ||
		errors.Is(err, ErrChannelRequired) ||
		errors.Is(err, ErrUnknownChannel) ||
		errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrNegativePage) ||
		errors.Is(err, ErrInvalidPageSize) ||
		errors.Is(err, ErrNegativeBalance) ||
		errors.Is(err, ErrSubCentAmount) ||
		errors.Is(err, ErrMalformedAmount) ||
		errors.Is(err, ErrAmountOutOfRange)
}

// IsNotFound returns true if a referenced account does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsConflict returns true if a client-chosen identifier is already taken.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateReference) ||
		errors.Is(err, ErrDuplicateAccount)
}

// IsRejected returns true if a business rule refused an otherwise valid request.
func IsRejected(err error) bool {
	return errors.Is(err, ErrFeeExceedsAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrBalanceOverflow)
}

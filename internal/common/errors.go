// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Derivation errors.
	ErrUnknownBasket          = errors.New("unknown basket")
	ErrUnmappedAccount        = errors.New("unmapped account")
	ErrUnbalancedEntry        = errors.New("unbalanced journal entry")
	ErrReconciliationMismatch = errors.New("reconciliation mismatch")
	ErrSuffixRangeExhausted   = errors.New("journal number range exhausted")
	ErrRunRejected            = errors.New("run rejected")
	ErrInterrupted            = errors.New("interrupted")

	// Input errors.
	ErrInvalidRecord  = errors.New("invalid record")
	ErrNoStatement    = errors.New("no statement data")
	ErrMissingSummary = errors.New("missing summary record")

	// Database errors.
	ErrNotFound = errors.New("not found")

	// Plaid errors.
	ErrPlaidConnection = errors.New("plaid connection failed")
	ErrPlaidRateLimit  = errors.New("plaid rate limit exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UnknownBasketError reports a basket id or symbol that cannot be routed to a
// configured basket.
type UnknownBasketError struct {
	BasketID string
	Symbol   string
	Date     string
}

func (e *UnknownBasketError) Error() string {
	var parts []string
	if e.BasketID != "" {
		parts = append(parts, "basket "+e.BasketID)
	}
	if e.Symbol != "" {
		parts = append(parts, "symbol "+e.Symbol)
	}
	if e.Date != "" {
		parts = append(parts, "date "+e.Date)
	}
	return fmt.Sprintf("%v: %s", ErrUnknownBasket, strings.Join(parts, ", "))
}

func (e *UnknownBasketError) Unwrap() error { return ErrUnknownBasket }

// UnmappedAccountError reports a symbol with no chart-of-accounts entry.
type UnmappedAccountError struct {
	Symbol    string
	Reference string
}

func (e *UnmappedAccountError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("%v: symbol %s in %s", ErrUnmappedAccount, e.Symbol, e.Reference)
	}
	return fmt.Sprintf("%v: symbol %s", ErrUnmappedAccount, e.Symbol)
}

func (e *UnmappedAccountError) Unwrap() error { return ErrUnmappedAccount }

// UnbalancedEntryError reports a journal entry whose debits and credits differ.
type UnbalancedEntryError struct {
	Reference string
	Debits    string
	Credits   string
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("%v: %s debits %s credits %s", ErrUnbalancedEntry, e.Reference, e.Debits, e.Credits)
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrUnbalancedEntry }

// ReconciliationMismatchError is advisory: the derived change in investment
// value does not tie out to the statement summary.
type ReconciliationMismatchError struct {
	Period   string
	Expected string
	Stated   string
	Delta    string
}

func (e *ReconciliationMismatchError) Error() string {
	return fmt.Sprintf("%v: period %s expected %s stated %s delta %s",
		ErrReconciliationMismatch, e.Period, e.Expected, e.Stated, e.Delta)
}

func (e *ReconciliationMismatchError) Unwrap() error { return ErrReconciliationMismatch }

// IsFatal reports whether an error must stop an entry from being emitted.
// Reconciliation mismatches are advisory and never fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrReconciliationMismatch)
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrPlaidRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}

package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsUnwrap(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		name     string
		contains string
	}{
		{
			name:     "unknown basket",
			err:      &UnknownBasketError{BasketID: "99", Symbol: "JEPI", Date: "2025-01-31"},
			sentinel: ErrUnknownBasket,
			contains: "basket 99, symbol JEPI, date 2025-01-31",
		},
		{
			name:     "unmapped account",
			err:      &UnmappedAccountError{Symbol: "XYZ", Reference: "PUR-10001"},
			sentinel: ErrUnmappedAccount,
			contains: "symbol XYZ in PUR-10001",
		},
		{
			name:     "unbalanced entry",
			err:      &UnbalancedEntryError{Reference: "DIV-1", Debits: "10.000", Credits: "9.000"},
			sentinel: ErrUnbalancedEntry,
			contains: "DIV-1 debits 10.000 credits 9.000",
		},
		{
			name:     "reconciliation mismatch",
			err:      &ReconciliationMismatchError{Period: "2025-01", Expected: "10", Stated: "12", Delta: "-2"},
			sentinel: ErrReconciliationMismatch,
			contains: "period 2025-01 expected 10 stated 12 delta -2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Contains(t, tt.err.Error(), tt.contains)

			wrapped := fmt.Errorf("entry: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestUnmappedAccountErrorWithoutReference(t *testing.T) {
	err := &UnmappedAccountError{Symbol: "XYZ"}
	assert.Equal(t, "unmapped account: symbol XYZ", err.Error())
}

func TestUserError(t *testing.T) {
	inner := errors.New("disk full")
	err := NewUserError("could not write journal", inner)

	assert.Equal(t, "could not write journal: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "bare", NewUserError("bare", nil).Error())
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "mismatch", err: &ReconciliationMismatchError{Period: "2025-01"}, want: false},
		{name: "unknown basket", err: &UnknownBasketError{BasketID: "1"}, want: true},
		{name: "unbalanced", err: fmt.Errorf("x: %w", ErrUnbalancedEntry), want: true},
		{name: "plain", err: errors.New("boom"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "rate limit", err: ErrRateLimit, want: true},
		{name: "plaid rate limit", err: fmt.Errorf("fetch: %w", ErrPlaidRateLimit), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "retryable wrapper", err: &RetryableError{Err: errors.New("503"), Retryable: true}, want: true},
		{name: "permanent wrapper", err: &RetryableError{Err: errors.New("400"), Retryable: false}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "canceled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

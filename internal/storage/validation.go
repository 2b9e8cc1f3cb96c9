// Package storage persists derivation runs and their journal lines in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRun   = errors.New("invalid run")
	ErrInvalidLine  = errors.New("invalid journal line")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks the fields every stored run must carry.
func validateRun(run *model.RunRecord) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if _, err := model.ParsePeriod(run.Period); err != nil {
		return fmt.Errorf("%w: period %q", ErrInvalidRun, run.Period)
	}
	if strings.TrimSpace(run.Prefix) == "" {
		return fmt.Errorf("%w: missing prefix", ErrInvalidRun)
	}
	if strings.TrimSpace(run.Policy) == "" {
		return fmt.Errorf("%w: missing policy", ErrInvalidRun)
	}
	if run.EntryCount < 0 || run.LineCount < 0 || run.FailedGroups < 0 {
		return fmt.Errorf("%w: negative counts", ErrInvalidRun)
	}
	return nil
}

// validateLines checks each line has exactly one side and an account.
func validateLines(lines []model.RunLine) error {
	for i := range lines {
		l := &lines[i]
		if strings.TrimSpace(l.Account) == "" {
			return fmt.Errorf("%w: line %d missing account", ErrInvalidLine, i)
		}
		if strings.TrimSpace(l.ReferenceNumber) == "" {
			return fmt.Errorf("%w: line %d missing reference number", ErrInvalidLine, i)
		}
		if (l.Debit == nil) == (l.Credit == nil) {
			return fmt.Errorf("%w: line %d must have exactly one of debit or credit", ErrInvalidLine, i)
		}
	}
	return nil
}

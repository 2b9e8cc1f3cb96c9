package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/statement-ledger/internal/aggregate"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/reconcile"
)

// GroupFailure is a group that produced no entry.
type GroupFailure struct {
	Date time.Time
	Err  error
	Kind model.EntryKind
	Key  string
}

func (f GroupFailure) Error() string {
	return fmt.Sprintf("%s %s %s: %v", f.Kind, model.FormatDate(f.Date), f.Key, f.Err)
}

func (f GroupFailure) Unwrap() error { return f.Err }

// Result is the outcome of one run.
type Result struct {
	Reconciliation *reconcile.Result
	Mismatch       *common.ReconciliationMismatchError // advisory
	Policy         Policy
	Entries        []model.JournalEntry
	Failures       []GroupFailure
	Skipped        []aggregate.Skipped
	Period         model.Period
}

// EntriesOf returns the entries of one kind in suffix order.
func (r *Result) EntriesOf(kind model.EntryKind) []model.JournalEntry {
	var out []model.JournalEntry
	for _, e := range r.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// LineCount is the number of journal lines across all entries.
func (r *Result) LineCount() int {
	n := 0
	for _, e := range r.Entries {
		n += len(e.Lines)
	}
	return n
}

// Err joins every group failure, or returns nil.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Reconciled reports whether the run tied out. It is nil when the statement
// had no summary.
func (r *Result) Reconciled() *bool {
	if r.Reconciliation == nil {
		return nil
	}
	ok := r.Reconciliation.Reconciled
	return &ok
}

// Record summarizes the run for the history store.
func (r *Result) Record(id, prefix string, createdAt time.Time) model.RunRecord {
	rec := model.RunRecord{
		ID:           id,
		CreatedAt:    createdAt,
		Period:       r.Period.String(),
		Prefix:       prefix,
		Policy:       string(r.Policy),
		EntryCount:   len(r.Entries),
		LineCount:    r.LineCount(),
		FailedGroups: len(r.Failures),
		Reconciled:   r.Reconciled(),
	}
	if r.Reconciliation != nil {
		rec.Expected = &r.Reconciliation.Expected
		rec.Stated = &r.Reconciliation.Stated
	}
	for _, f := range r.Failures {
		rec.Failures = append(rec.Failures, f.Error())
	}
	return rec
}

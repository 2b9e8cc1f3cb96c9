// Package testutil provides shared fixtures for tests that need a run
// history database or a populated statement.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// TestDB is a migrated run history database scoped to one test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It automatically
// handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBAt(t, storage.MemoryPath)
}

// SetupTestDBAt opens and migrates the database at path, for tests that
// drive the CLI against a configured database file.
func SetupTestDBAt(t *testing.T, path string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedRun stores run and its lines, failing the test on error. The stored
// run ID is returned.
func (db *TestDB) SeedRun(run *model.RunRecord, lines []model.RunLine) string {
	db.t.Helper()
	if err := db.Storage.SaveRun(context.Background(), run, lines); err != nil {
		db.t.Fatalf("failed to seed run for %s: %v", run.Period, err)
	}
	return run.ID
}

// MustGetRun loads a run or fails the test.
func (db *TestDB) MustGetRun(id string) *model.RunRecord {
	db.t.Helper()
	run, err := db.Storage.GetRun(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load run %s: %v", id, err)
	}
	return run
}

// SampleRun returns a reconciled run for period holding one balanced
// dividend entry of amount.
func SampleRun(period, amount string) (*model.RunRecord, []model.RunLine) {
	p, err := model.ParsePeriod(period)
	if err != nil {
		panic(err)
	}
	d := decimal.RequireFromString(amount)
	end := p.End()
	reconciled := true

	run := &model.RunRecord{
		Period:     period,
		Prefix:     "MMW-",
		Policy:     "emit-valid",
		EntryCount: 1,
		LineCount:  2,
		Reconciled: &reconciled,
		Expected:   model.DecimalPtr(d),
		Stated:     model.DecimalPtr(d),
		CreatedAt:  time.Date(p.Year, p.Month, 1, 12, 0, 0, 0, time.UTC),
	}
	ref := "DIV-" + model.FormatDate(end)
	lines := []model.RunLine{
		{
			Kind:            model.KindDividend,
			JournalDate:     end,
			ReferenceNumber: ref,
			JournalNumber:   "MMW-10001",
			Account:         "Brokerage Cash",
			Description:     "Dividend",
			Debit:           model.DecimalPtr(d),
			Position:        1,
		},
		{
			Kind:            model.KindDividend,
			JournalDate:     end,
			ReferenceNumber: ref,
			JournalNumber:   "MMW-10001",
			Account:         "Dividend Income",
			Description:     "Dividend",
			Credit:          model.DecimalPtr(d),
			Position:        2,
		},
	}
	return run, lines
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaveRun stores a run with its lines and failures in one transaction. An
// empty run ID is filled in.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.RunRecord, lines []model.RunLine) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	if err := validateLines(lines); err != nil {
		return err
	}

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, period, prefix, policy, entry_count, line_count, failed_groups,
			reconciled, expected, stated, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Period, run.Prefix, run.Policy, run.EntryCount, run.LineCount, run.FailedGroups,
		nullBool(run.Reconciled), nullDecimal(run.Expected), nullDecimal(run.Stated), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	lineStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO journal_lines (
			run_id, position, kind, journal_date, reference_number, journal_number,
			notes, account, description, debit, credit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare line insert: %w", err)
	}
	defer func() { _ = lineStmt.Close() }()

	for i := range lines {
		l := &lines[i]
		if _, err := lineStmt.ExecContext(ctx,
			run.ID, i, string(l.Kind), l.JournalDate, l.ReferenceNumber, l.JournalNumber,
			l.Notes, l.Account, l.Description, nullDecimal(l.Debit), nullDecimal(l.Credit),
		); err != nil {
			return fmt.Errorf("failed to insert line %d: %w", i, err)
		}
	}

	for i, msg := range run.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_failures (run_id, position, message) VALUES (?, ?, ?)`,
			run.ID, i, msg,
		); err != nil {
			return fmt.Errorf("failed to insert failure %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	slog.Debug("Saved run",
		"run_id", run.ID,
		"period", run.Period,
		"lines", len(lines),
		"failures", len(run.Failures))
	return nil
}

const runColumns = `id, period, prefix, policy, entry_count, line_count, failed_groups,
	reconciled, expected, stated, created_at`

// GetRun returns one run with its failures.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFailures(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the most recent run for a period.
func (s *SQLiteStorage) LatestRun(ctx context.Context, period string) (*model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(period, "period"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE period = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, period)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no run for %s: %w", period, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFailures(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first. Failures are not loaded.
func (s *SQLiteStorage) ListRuns(ctx context.Context, filter service.RunFilter) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if filter.Period != "" {
		query += ` WHERE period = ?`
		args = append(args, filter.Period)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRunLines returns a run's journal lines in output order.
func (s *SQLiteStorage) GetRunLines(ctx context.Context, runID string) ([]model.RunLine, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, kind, journal_date, reference_number, journal_number,
			notes, account, description, debit, credit
		FROM journal_lines
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []model.RunLine
	for rows.Next() {
		var (
			l             model.RunLine
			kind          string
			notes, desc   sql.NullString
			debit, credit sql.NullString
		)
		if err := rows.Scan(&l.Position, &kind, &l.JournalDate, &l.ReferenceNumber, &l.JournalNumber,
			&notes, &l.Account, &desc, &debit, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		l.RunID = runID
		l.Kind = model.EntryKind(kind)
		l.Notes = notes.String
		l.Description = desc.String
		if l.Debit, err = parseNullDecimal(debit); err != nil {
			return nil, err
		}
		if l.Credit, err = parseNullDecimal(credit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal lines: %w", err)
	}
	return lines, nil
}

func (s *SQLiteStorage) loadFailures(ctx context.Context, run *model.RunRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message FROM run_failures WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query run failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return fmt.Errorf("failed to scan run failure: %w", err)
		}
		run.Failures = append(run.Failures, msg)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.RunRecord, error) {
	var (
		run             model.RunRecord
		reconciled      sql.NullBool
		expected, state sql.NullString
	)
	err := sc.Scan(&run.ID, &run.Period, &run.Prefix, &run.Policy, &run.EntryCount, &run.LineCount,
		&run.FailedGroups, &reconciled, &expected, &state, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if reconciled.Valid {
		v := reconciled.Bool
		run.Reconciled = &v
	}
	if run.Expected, err = parseNullDecimal(expected); err != nil {
		return nil, err
	}
	if run.Stated, err = parseNullDecimal(state); err != nil {
		return nil, err
	}
	return &run, nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: model.FormatAmount(*d), Valid: true}
}

func parseNullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount %q: %w", s.String, err)
	}
	return &d, nil
}

// Package export writes journal entries as bookkeeping import CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Header is the exact column layout the bookkeeping import expects.
var Header = []string{
	"Journal Date",
	"Reference Number",
	"Journal Number Prefix",
	"Journal Number Suffix",
	"Notes",
	"Journal Type",
	"Currency",
	"Account",
	"Description",
	"Contact Name",
	"Debit",
	"Credit",
	"Project Name",
	"Status",
	"Exchange Rate",
}

// FileName returns <PREFIX>-<YYYY>-<MM>-<TYPE>.csv. A trailing dash on the
// journal number prefix is dropped.
func FileName(prefix string, p model.Period, kind model.EntryKind) string {
	return fmt.Sprintf("%s-%04d-%02d-%s.csv", strings.TrimSuffix(prefix, "-"), p.Year, int(p.Month), kind)
}

// Rows renders entries as CSV records, header excluded.
func Rows(entries []model.JournalEntry) [][]string {
	var rows [][]string
	for i := range entries {
		e := &entries[i]
		for _, l := range e.Lines {
			rows = append(rows, []string{
				model.FormatDate(e.JournalDate),
				e.ReferenceNumber,
				e.NumberPrefix,
				strconv.Itoa(e.NumberSuffix),
				e.Notes,
				model.JournalTypeBoth,
				model.CurrencyUSD,
				l.Account,
				l.Description,
				l.ContactName,
				formatSide(l.Debit),
				formatSide(l.Credit),
				l.ProjectName,
				model.StatusPublished,
				"",
			})
		}
	}
	return rows
}

// Write writes the header and one row per journal line.
func Write(w io.Writer, entries []model.JournalEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(Rows(entries)); err != nil {
		return fmt.Errorf("failed to write journal rows: %w", err)
	}
	return nil
}

// Encode renders entries to bytes.
func Encode(entries []model.JournalEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFiles writes one file per entry kind into dir and returns the paths
// written. Kinds without entries get no file, and a stale file from an
// earlier run of the same period is removed.
func WriteFiles(dir, prefix string, p model.Period, entries []model.JournalEntry) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	byKind := make(map[model.EntryKind][]model.JournalEntry)
	for _, e := range entries {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	var written []string
	for _, kind := range model.EntryKinds {
		path := filepath.Join(dir, FileName(prefix, p, kind))
		kindEntries := byKind[kind]
		if len(kindEntries) == 0 {
			if _, err := removeStale(path); err != nil {
				return written, err
			}
			continue
		}

		data, err := Encode(kindEntries)
		if err != nil {
			return written, fmt.Errorf("failed to encode %s: %w", kind, err)
		}
		if err := writeFileAtomic(path, data); err != nil {
			return written, err
		}
		slog.Debug("Wrote journal file", "path", path, "entries", len(kindEntries))
		written = append(written, path)
	}
	return written, nil
}

// RemoveFiles deletes every journal file of a period from dir and returns
// the paths removed. Missing files are not an error.
func RemoveFiles(dir, prefix string, p model.Period) ([]string, error) {
	var removed []string
	for _, kind := range model.EntryKinds {
		path := filepath.Join(dir, FileName(prefix, p, kind))
		ok, err := removeStale(path)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, path)
		}
	}
	return removed, nil
}

func removeStale(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		slog.Info("Removed stale journal file", "path", path)
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to remove stale %s: %w", path, err)
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".journal-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func formatSide(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return model.FormatAmount(*d)
}

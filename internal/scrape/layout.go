// Package scrape reads and writes the normalized statement CSV files an
// extraction step leaves on disk, one file per section per month.
package scrape

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
)

// Section is one of the four record streams.
type Section string

// Sections and their directory names.
const (
	SectionSummary  Section = "summary"
	SectionIncome   Section = "income"
	SectionActivity Section = "activity"
	SectionHoldings Section = "holdings"
)

// Sections lists every section in file order.
var Sections = []Section{SectionSummary, SectionIncome, SectionActivity, SectionHoldings}

// Code is the file name suffix for the section.
func (s Section) Code() string {
	switch s {
	case SectionSummary:
		return "SUM"
	case SectionIncome:
		return "INC"
	case SectionActivity:
		return "ACT"
	case SectionHoldings:
		return "HLD"
	default:
		return strings.ToUpper(string(s))
	}
}

// Layout locates scrape files under a root directory:
// <root>/scrapes/<section>/<YYYY>/<PREFIX>-<YYYY>-<MM>-<CODE>.csv.
type Layout struct {
	Root   string
	Prefix string
}

// Path returns the file for one section and period.
func (l Layout) Path(section Section, p model.Period) string {
	name := fmt.Sprintf("%s-%04d-%02d-%s.csv", strings.TrimSuffix(l.Prefix, "-"), p.Year, int(p.Month), section.Code())
	return filepath.Join(l.Root, "scrapes", string(section), fmt.Sprintf("%04d", p.Year), name)
}

// Load reads every section for a period. A missing summary is an error;
// missing income, activity or holdings files mean no rows.
func (l Layout) Load(p model.Period) (*model.Statement, error) {
	stmt := &model.Statement{Period: p}

	summaryPath := l.Path(SectionSummary, p)
	f, err := os.Open(summaryPath) //nolint:gosec // path built from configured root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingSummary, summaryPath)
		}
		return nil, fmt.Errorf("failed to open summary: %w", err)
	}
	stmt.Summary, err = ReadSummary(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", summaryPath, err)
	}

	if err := l.readOptional(SectionIncome, p, func(f *os.File) (err error) {
		stmt.Income, err = ReadIncome(f)
		return err
	}); err != nil {
		return nil, err
	}
	if err := l.readOptional(SectionActivity, p, func(f *os.File) (err error) {
		stmt.Activity, err = ReadActivity(f)
		return err
	}); err != nil {
		return nil, err
	}
	if err := l.readOptional(SectionHoldings, p, func(f *os.File) (err error) {
		stmt.Holdings, err = ReadHoldings(f)
		return err
	}); err != nil {
		return nil, err
	}

	slog.Debug("Loaded scrape files",
		"period", p.String(),
		"income_rows", len(stmt.Income),
		"activity_rows", len(stmt.Activity),
		"holdings", len(stmt.Holdings))
	return stmt, nil
}

func (l Layout) readOptional(section Section, p model.Period, read func(*os.File) error) error {
	path := l.Path(section, p)
	f, err := os.Open(path) //nolint:gosec // path built from configured root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Scrape file not found, treating as empty", "path", path)
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", section, err)
	}
	defer func() { _ = f.Close() }()
	if err := read(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Save writes every non-empty section of stmt and returns the paths written.
func (l Layout) Save(stmt *model.Statement) ([]string, error) {
	var written []string
	write := func(section Section, fn func(*os.File) error) error {
		path := l.Path(section, stmt.Period)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", section, err)
		}
		f, err := os.Create(path) //nolint:gosec // path built from configured root
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	if stmt.Summary != nil {
		if err := write(SectionSummary, func(f *os.File) error { return WriteSummary(f, stmt.Summary) }); err != nil {
			return written, err
		}
	}
	if len(stmt.Income) > 0 {
		if err := write(SectionIncome, func(f *os.File) error { return WriteIncome(f, stmt.Income) }); err != nil {
			return written, err
		}
	}
	if len(stmt.Activity) > 0 {
		if err := write(SectionActivity, func(f *os.File) error { return WriteActivity(f, stmt.Activity) }); err != nil {
			return written, err
		}
	}
	if len(stmt.Holdings) > 0 {
		if err := write(SectionHoldings, func(f *os.File) error { return WriteHoldings(f, stmt.Holdings) }); err != nil {
			return written, err
		}
	}
	return written, nil
}

package model

import (
	"fmt"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
)

// Period identifies one monthly statement.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a YYYY-MM period.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: period %q is not YYYY-MM", common.ErrInvalidRecord, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// Validate checks the month is in range.
func (p Period) Validate() error {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: month must be between 1 and 12, got %d", common.ErrInvalidRecord, p.Month)
	}
	if p.Year < 1900 {
		return fmt.Errorf("%w: year %d", common.ErrInvalidRecord, p.Year)
	}
	return nil
}

// Start returns the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last calendar day of the period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Next returns the following month.
func (p Period) Next() Period {
	t := p.Start().AddDate(0, 1, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	t := p.Start().AddDate(0, -1, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}

// Before reports whether p is earlier than o.
func (p Period) Before(o Period) bool {
	return p.Start().Before(o.Start())
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// PeriodRange returns every period from start to end inclusive.
func PeriodRange(start, end Period) []Period {
	var periods []Period
	for p := start; !end.Before(p); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

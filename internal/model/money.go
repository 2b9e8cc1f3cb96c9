package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places money is carried at.
const Precision int32 = 3

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Round rounds an amount to the money precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// Sum adds amounts and rounds the result.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round(total)
}

// FormatAmount renders an amount without trailing zeros, e.g. 9.53 or 19999.91.
func FormatAmount(d decimal.Decimal) string {
	return Round(d).String()
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", common.ErrInvalidRecord, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", common.ErrInvalidRecord, s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseAmount parses a monetary amount. Amounts finer than the money
// precision are rejected rather than rounded.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.Equal(Round(d)) {
		return decimal.Zero, fmt.Errorf("%w: amount %q has more than %d decimal places", common.ErrInvalidRecord, s, Precision)
	}
	return d, nil
}

// ParseOptionalAmount parses an amount that may be blank or "unavailable".
func ParseOptionalAmount(s string) (*decimal.Decimal, error) {
	if isBlank(s) {
		return nil, nil
	}
	d, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseDecimal parses quantities and prices, which are not limited to the
// money precision. Thousands separators and a leading $ are tolerated.
func ParseDecimal(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: empty number", common.ErrInvalidRecord)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: number %q: %v", common.ErrInvalidRecord, s, err)
	}
	return d, nil
}

// ParseOptionalDecimal parses a quantity or price that may be blank.
func ParseOptionalDecimal(s string) (*decimal.Decimal, error) {
	if isBlank(s) {
		return nil, nil
	}
	d, err := ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FormatOptional renders an optional number, blank when absent.
func FormatOptional(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// DecimalPtr returns a pointer to d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "unavailable")
}

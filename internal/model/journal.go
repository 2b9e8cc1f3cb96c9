package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is the type of journal entry, which also selects the output file.
type EntryKind string

// Entry kinds, in output order.
const (
	KindDividend   EntryKind = "DIV"
	KindPurchase   EntryKind = "PUR"
	KindSale       EntryKind = "SAL"
	KindUnrealized EntryKind = "UNR"
)

// EntryKinds lists every kind in a stable order.
var EntryKinds = []EntryKind{KindDividend, KindPurchase, KindSale, KindUnrealized}

// ParseEntryKind parses a file type code.
func ParseEntryKind(s string) (EntryKind, error) {
	for _, k := range EntryKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entry kind %q", s)
}

// Label is the human name of a kind.
func (k EntryKind) Label() string {
	switch k {
	case KindDividend:
		return "Dividends"
	case KindPurchase:
		return "Purchases"
	case KindSale:
		return "Sales"
	case KindUnrealized:
		return "Unrealized"
	default:
		return string(k)
	}
}

// Constant journal line fields.
const (
	CurrencyUSD     = "USD"
	StatusPublished = "published"
	JournalTypeBoth = "both"
)

// JournalLine is a single debit or credit line. Exactly one of Debit and
// Credit is set.
type JournalLine struct {
	Debit       *decimal.Decimal
	Credit      *decimal.Decimal
	Account     string
	Description string
	ContactName string
	ProjectName string
}

// DebitLine builds a debit line.
func DebitLine(account, description string, amount decimal.Decimal) JournalLine {
	return JournalLine{Account: account, Description: description, Debit: DecimalPtr(Round(amount))}
}

// CreditLine builds a credit line.
func CreditLine(account, description string, amount decimal.Decimal) JournalLine {
	return JournalLine{Account: account, Description: description, Credit: DecimalPtr(Round(amount))}
}

// Amount returns whichever side is set.
func (l JournalLine) Amount() decimal.Decimal {
	if l.Debit != nil {
		return *l.Debit
	}
	if l.Credit != nil {
		return *l.Credit
	}
	return decimal.Zero
}

// IsDebit reports whether the line is a debit.
func (l JournalLine) IsDebit() bool {
	return l.Debit != nil
}

// JournalEntry is an ordered, balanced set of lines sharing a date,
// reference and journal number.
type JournalEntry struct {
	JournalDate     time.Time
	Kind            EntryKind
	ReferenceNumber string
	NumberPrefix    string
	Notes           string
	Lines           []JournalLine
	NumberSuffix    int
}

// JournalNumber is the prefix and suffix joined, e.g. MMW-10001.
func (e *JournalEntry) JournalNumber() string {
	return fmt.Sprintf("%s%d", e.NumberPrefix, e.NumberSuffix)
}

// Totals sums each side of the entry.
func (e *JournalEntry) Totals() (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		if l.Debit != nil {
			debits = debits.Add(*l.Debit)
		}
		if l.Credit != nil {
			credits = credits.Add(*l.Credit)
		}
	}
	return Round(debits), Round(credits)
}

// Balanced reports whether debits equal credits at money precision.
func (e *JournalEntry) Balanced() bool {
	debits, credits := e.Totals()
	return debits.Equal(credits)
}

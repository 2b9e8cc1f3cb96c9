package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord summarizes one persisted derivation run.
type RunRecord struct {
	CreatedAt    time.Time
	Reconciled   *bool // nil when the statement had no summary
	Expected     *decimal.Decimal
	Stated       *decimal.Decimal
	ID           string
	Period       string
	Prefix       string
	Policy       string
	Failures     []string
	EntryCount   int
	LineCount    int
	FailedGroups int
}

// RunLine is one journal line as stored with a run.
type RunLine struct {
	Debit           *decimal.Decimal
	Credit          *decimal.Decimal
	JournalDate     time.Time
	RunID           string
	Kind            EntryKind
	ReferenceNumber string
	JournalNumber   string
	Notes           string
	Account         string
	Description     string
	Position        int
}

// FlattenEntries turns entries into run lines, numbering them in output order.
func FlattenEntries(runID string, entries []JournalEntry) []RunLine {
	var lines []RunLine
	for i := range entries {
		e := &entries[i]
		for _, l := range e.Lines {
			lines = append(lines, RunLine{
				RunID:           runID,
				Position:        len(lines),
				Kind:            e.Kind,
				JournalDate:     e.JournalDate,
				ReferenceNumber: e.ReferenceNumber,
				JournalNumber:   e.JournalNumber(),
				Notes:           e.Notes,
				Account:         l.Account,
				Description:     l.Description,
				Debit:           l.Debit,
				Credit:          l.Credit,
			})
		}
	}
	return lines
}

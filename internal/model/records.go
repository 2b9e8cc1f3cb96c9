package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/shopspring/decimal"
)

// HoldingRecord is one position from the statement's holdings section.
type HoldingRecord struct {
	BeginningValue *decimal.Decimal // nil when the position is new this period
	CostBasis      *decimal.Decimal
	UnrealizedGain *decimal.Decimal
	Symbol         string
	Description    string
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	EndingValue    decimal.Decimal
}

// Validate ensures the holding has the fields the engine relies on.
func (h *HoldingRecord) Validate() error {
	if strings.TrimSpace(h.Symbol) == "" {
		return fmt.Errorf("%w: holding missing symbol", common.ErrInvalidRecord)
	}
	if !h.EndingValue.Equal(Round(h.EndingValue)) {
		return fmt.Errorf("%w: holding %s ending value %s exceeds %d decimals", common.ErrInvalidRecord, h.Symbol, h.EndingValue, Precision)
	}
	return nil
}

// Change returns ending value minus beginning value, or minus cost basis
// when the position has no prior-period baseline. Positions with neither
// baseline contribute nothing.
func (h *HoldingRecord) Change() decimal.Decimal {
	switch {
	case h.BeginningValue != nil:
		return Round(h.EndingValue.Sub(*h.BeginningValue))
	case h.CostBasis != nil:
		return Round(h.EndingValue.Sub(*h.CostBasis))
	default:
		return decimal.Zero
	}
}

// IncomeKind classifies an income row.
type IncomeKind string

// Income kinds.
const (
	IncomeDividend     IncomeKind = "dividend"
	IncomeReinvestment IncomeKind = "reinvestment"
	IncomeInterest     IncomeKind = "interest"
)

// ParseIncomeKind maps statement description text onto an income kind.
func ParseIncomeKind(description string) (IncomeKind, error) {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "reinvest"):
		return IncomeReinvestment, nil
	case strings.Contains(lower, "interest"):
		return IncomeInterest, nil
	case strings.Contains(lower, "dividend"),
		strings.Contains(lower, "distribution"),
		strings.Contains(lower, "cap gain"):
		return IncomeDividend, nil
	default:
		return "", fmt.Errorf("%w: unrecognized income description %q", common.ErrInvalidRecord, description)
	}
}

// IncomeRecord is one row from the statement's income section.
type IncomeRecord struct {
	SettlementDate time.Time
	Quantity       *decimal.Decimal
	Price          *decimal.Decimal
	SecurityName   string
	Symbol         string
	CUSIP          string
	Description    string
	Kind           IncomeKind
	Amount         decimal.Decimal // reinvestments are negative
}

// Validate ensures the income row is usable.
func (r *IncomeRecord) Validate() error {
	if r.SettlementDate.IsZero() {
		return fmt.Errorf("%w: income row missing settlement date", common.ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("%w: income row on %s missing symbol", common.ErrInvalidRecord, FormatDate(r.SettlementDate))
	}
	switch r.Kind {
	case IncomeDividend, IncomeInterest, IncomeReinvestment:
	default:
		return fmt.Errorf("%w: income row %s has kind %q", common.ErrInvalidRecord, r.Symbol, r.Kind)
	}
	if !r.Amount.Equal(Round(r.Amount)) {
		return fmt.Errorf("%w: income row %s amount %s exceeds %d decimals", common.ErrInvalidRecord, r.Symbol, r.Amount, Precision)
	}
	return nil
}

// Action is the direction of an activity row.
type Action string

// Activity actions.
const (
	ActionBought Action = "bought"
	ActionSold   Action = "sold"
	ActionOther  Action = "other"
)

// ParseAction maps statement action text ("You Bought", "SELL") onto an action.
func ParseAction(text string) Action {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(lower, "bought"), strings.HasPrefix(lower, "buy"):
		return ActionBought
	case strings.Contains(lower, "sold"), strings.HasPrefix(lower, "sell"):
		return ActionSold
	default:
		return ActionOther
	}
}

// ActivityRecord is one buy or sell row from the statement's activity section.
type ActivityRecord struct {
	SettlementDate  time.Time
	TransactionCost *decimal.Decimal
	CostBasis       *decimal.Decimal
	Action          Action
	ActionText      string
	Symbol          string
	SecurityName    string
	BasketID        string // empty means no explicit basket
	Quantity        decimal.Decimal
	Price           decimal.Decimal
	Amount          decimal.Decimal
}

// Validate ensures the activity row is usable.
func (r *ActivityRecord) Validate() error {
	if r.SettlementDate.IsZero() {
		return fmt.Errorf("%w: activity row missing settlement date", common.ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("%w: activity row on %s missing symbol", common.ErrInvalidRecord, FormatDate(r.SettlementDate))
	}
	if r.Action == "" {
		return fmt.Errorf("%w: activity row %s missing action", common.ErrInvalidRecord, r.Symbol)
	}
	if !r.Amount.Equal(Round(r.Amount)) {
		return fmt.Errorf("%w: activity row %s amount %s exceeds %d decimals", common.ErrInvalidRecord, r.Symbol, r.Amount, Precision)
	}
	return nil
}

// Magnitude returns the unsigned amount. Statements print buys as negative
// cash flows; the ledger only needs the size.
func (r *ActivityRecord) Magnitude() decimal.Decimal {
	return r.Amount.Abs()
}

// SummaryRecord is the statement's account summary. Exactly one per statement.
type SummaryRecord struct {
	PeriodStart time.Time
	PeriodEnd   time.Time

	BeginningValuePeriod        decimal.Decimal
	AdditionsPeriod             decimal.Decimal
	SubtractionsPeriod          decimal.Decimal
	ChangeInvestmentValuePeriod decimal.Decimal
	EndingValuePeriod           decimal.Decimal
	IncomePeriod                decimal.Decimal

	BeginningValueYTD        decimal.Decimal
	AdditionsYTD             decimal.Decimal
	SubtractionsYTD          decimal.Decimal
	ChangeInvestmentValueYTD decimal.Decimal
	EndingValueYTD           decimal.Decimal
	IncomeYTD                decimal.Decimal
}

// Validate checks the period bounds.
func (s *SummaryRecord) Validate() error {
	if s.PeriodStart.IsZero() || s.PeriodEnd.IsZero() {
		return fmt.Errorf("%w: summary missing period bounds", common.ErrInvalidRecord)
	}
	if s.PeriodEnd.Before(s.PeriodStart) {
		return fmt.Errorf("%w: summary period ends %s before it starts %s",
			common.ErrInvalidRecord, FormatDate(s.PeriodEnd), FormatDate(s.PeriodStart))
	}
	return nil
}

// UnrealizedPeriod is the part of the period's change not explained by income.
func (s *SummaryRecord) UnrealizedPeriod() decimal.Decimal {
	return Round(s.ChangeInvestmentValuePeriod.Sub(s.IncomePeriod))
}

// Balanced reports whether the summary's own period figures roll forward:
// beginning + additions + subtractions + change == ending. Subtractions are
// printed negative on statements.
func (s *SummaryRecord) Balanced(tolerance decimal.Decimal) (bool, decimal.Decimal) {
	rolled := Sum(s.BeginningValuePeriod, s.AdditionsPeriod, s.SubtractionsPeriod, s.ChangeInvestmentValuePeriod)
	delta := Round(rolled.Sub(s.EndingValuePeriod))
	return delta.Abs().LessThanOrEqual(tolerance), delta
}

// Statement holds every normalized record for one period.
type Statement struct {
	Summary  *SummaryRecord // nil when the source cannot provide one
	Holdings []HoldingRecord
	// PriorHoldings is the previous period's positions, used to value
	// symbols sold out during this period.
	PriorHoldings []HoldingRecord
	Income        []IncomeRecord
	Activity      []ActivityRecord
	Period        Period
}

// Validate validates every record in the statement.
func (s *Statement) Validate() error {
	if err := s.Period.Validate(); err != nil {
		return err
	}
	if s.Summary != nil {
		if err := s.Summary.Validate(); err != nil {
			return err
		}
	}
	for i := range s.Holdings {
		if err := s.Holdings[i].Validate(); err != nil {
			return fmt.Errorf("holding %d: %w", i+1, err)
		}
	}
	for i := range s.Income {
		if err := s.Income[i].Validate(); err != nil {
			return fmt.Errorf("income row %d: %w", i+1, err)
		}
	}
	for i := range s.Activity {
		if err := s.Activity[i].Validate(); err != nil {
			return fmt.Errorf("activity row %d: %w", i+1, err)
		}
	}
	return nil
}

// FillBeginningValues sets each holding's beginning value from the prior
// period's ending value for the same symbol. Holdings without a prior
// position are left as new.
func FillBeginningValues(holdings, prior []HoldingRecord) {
	ending := make(map[string]decimal.Decimal, len(prior))
	for _, h := range prior {
		ending[strings.ToUpper(strings.TrimSpace(h.Symbol))] = h.EndingValue
	}
	for i := range holdings {
		if v, ok := ending[strings.ToUpper(strings.TrimSpace(holdings[i].Symbol))]; ok {
			holdings[i].BeginningValue = DecimalPtr(v)
		}
	}
}

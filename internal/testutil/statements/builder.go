// Package statements provides a fluent builder for test statements.
//
// Example usage:
//
//	stmt := statements.NewBuilder(t, "2025-01").
//		WithDividend("JEPI", "12.345").
//		WithHolding("JEPI", "1000", "1010").
//		WithSummary("1000", "22.345", "12.345").
//		Build()
package statements

import (
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Builder accumulates records for one statement period. Amounts are decimal
// strings; a malformed amount fails the test.
type Builder struct {
	t    *testing.T
	stmt model.Statement
}

// NewBuilder starts an empty statement for period (YYYY-MM).
func NewBuilder(t *testing.T, period string) *Builder {
	t.Helper()
	p, err := model.ParsePeriod(period)
	if err != nil {
		t.Fatalf("bad fixture period %q: %v", period, err)
	}
	return &Builder{t: t, stmt: model.Statement{Period: p}}
}

func (b *Builder) dec(s string) decimal.Decimal {
	b.t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		b.t.Fatalf("bad fixture amount %q: %v", s, err)
	}
	return d
}

func (b *Builder) day(n int) time.Time {
	p := b.stmt.Period
	return time.Date(p.Year, p.Month, n, 0, 0, 0, 0, time.UTC)
}

// WithDividend adds a dividend settling on the last day of the period.
func (b *Builder) WithDividend(symbol, amount string) *Builder {
	b.t.Helper()
	return b.withIncome(symbol, "Dividend Received", model.IncomeDividend, b.dec(amount))
}

// WithInterest adds an interest payment settling on the last day of the period.
func (b *Builder) WithInterest(symbol, amount string) *Builder {
	b.t.Helper()
	return b.withIncome(symbol, "Interest Earned", model.IncomeInterest, b.dec(amount))
}

// WithReinvestment adds a reinvestment. Statements print these negative.
func (b *Builder) WithReinvestment(symbol, amount string) *Builder {
	b.t.Helper()
	return b.withIncome(symbol, "Reinvestment", model.IncomeReinvestment, b.dec(amount).Abs().Neg())
}

func (b *Builder) withIncome(symbol, description string, kind model.IncomeKind, amount decimal.Decimal) *Builder {
	b.stmt.Income = append(b.stmt.Income, model.IncomeRecord{
		SettlementDate: b.stmt.Period.End(),
		Symbol:         symbol,
		SecurityName:   symbol,
		Description:    description,
		Kind:           kind,
		Amount:         amount,
	})
	return b
}

// WithBuy adds a purchase settling on day. amount is the unsigned cost.
func (b *Builder) WithBuy(day int, symbol, quantity, amount string) *Builder {
	b.t.Helper()
	return b.withActivity(day, model.ActionBought, "You Bought", symbol, quantity, b.dec(amount).Abs().Neg())
}

// WithSell adds a sale settling on day. amount is the unsigned proceeds.
func (b *Builder) WithSell(day int, symbol, quantity, amount string) *Builder {
	b.t.Helper()
	return b.withActivity(day, model.ActionSold, "You Sold", symbol, quantity, b.dec(amount).Abs())
}

func (b *Builder) withActivity(day int, action model.Action, text, symbol, quantity string, amount decimal.Decimal) *Builder {
	b.t.Helper()
	b.stmt.Activity = append(b.stmt.Activity, model.ActivityRecord{
		SettlementDate: b.day(day),
		Action:         action,
		ActionText:     text,
		Symbol:         symbol,
		SecurityName:   symbol,
		Quantity:       b.dec(quantity),
		Amount:         amount,
	})
	return b
}

// InBasket routes the most recent activity row to basketID explicitly.
func (b *Builder) InBasket(basketID string) *Builder {
	b.t.Helper()
	if len(b.stmt.Activity) == 0 {
		b.t.Fatalf("InBasket(%s) called before any activity", basketID)
	}
	b.stmt.Activity[len(b.stmt.Activity)-1].BasketID = basketID
	return b
}

// WithHolding adds a position carried over from the prior period.
func (b *Builder) WithHolding(symbol, beginning, ending string) *Builder {
	b.t.Helper()
	b.stmt.Holdings = append(b.stmt.Holdings, model.HoldingRecord{
		Symbol:         symbol,
		Description:    strings.ToUpper(symbol),
		BeginningValue: model.DecimalPtr(b.dec(beginning)),
		EndingValue:    b.dec(ending),
	})
	return b
}

// WithNewHolding adds a position opened this period, measured against cost.
func (b *Builder) WithNewHolding(symbol, cost, ending string) *Builder {
	b.t.Helper()
	b.stmt.Holdings = append(b.stmt.Holdings, model.HoldingRecord{
		Symbol:      symbol,
		Description: strings.ToUpper(symbol),
		CostBasis:   model.DecimalPtr(b.dec(cost)),
		EndingValue: b.dec(ending),
	})
	return b
}

// WithPriorHolding records a position's ending value in the previous period.
func (b *Builder) WithPriorHolding(symbol, ending string) *Builder {
	b.t.Helper()
	b.stmt.PriorHoldings = append(b.stmt.PriorHoldings, model.HoldingRecord{
		Symbol:      symbol,
		Description: strings.ToUpper(symbol),
		EndingValue: b.dec(ending),
	})
	return b
}

// WithSummary sets the account summary. The ending value is derived so the
// summary rolls forward.
func (b *Builder) WithSummary(beginning, change, income string) *Builder {
	b.t.Helper()
	begin := b.dec(beginning)
	delta := b.dec(change)
	b.stmt.Summary = &model.SummaryRecord{
		PeriodStart:                 b.stmt.Period.Start(),
		PeriodEnd:                   b.stmt.Period.End(),
		BeginningValuePeriod:        begin,
		ChangeInvestmentValuePeriod: delta,
		EndingValuePeriod:           begin.Add(delta),
		IncomePeriod:                b.dec(income),
	}
	return b
}

// Build returns the statement. Each call returns an independent copy.
func (b *Builder) Build() *model.Statement {
	stmt := b.stmt
	stmt.Income = append([]model.IncomeRecord(nil), b.stmt.Income...)
	stmt.Activity = append([]model.ActivityRecord(nil), b.stmt.Activity...)
	stmt.Holdings = append([]model.HoldingRecord(nil), b.stmt.Holdings...)
	stmt.PriorHoldings = append([]model.HoldingRecord(nil), b.stmt.PriorHoldings...)
	if b.stmt.Summary != nil {
		summary := *b.stmt.Summary
		stmt.Summary = &summary
	}
	return &stmt
}

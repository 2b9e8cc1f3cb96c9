// Package reconcile cross-checks derived figures against a statement's own summary.
package reconcile

import (
	"fmt"

	"github.com/Veraticus/statement-ledger/internal/basket"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultTolerance absorbs 3-decimal rounding compounded over many rows.
var DefaultTolerance = decimal.New(1, -2)

// ActivityFilter reports activity rows that never reach the books.
type ActivityFilter interface {
	Exclusion(r *model.ActivityRecord) (string, bool)
}

// Result is the reconciliation of one statement period.
type Result struct {
	Period         string
	Income         decimal.Decimal
	HoldingsChange decimal.Decimal
	Purchases      decimal.Decimal
	Sales          decimal.Decimal
	Expected       decimal.Decimal
	Stated         decimal.Decimal
	Delta          decimal.Decimal
	Tolerance      decimal.Decimal
	SummaryDelta   decimal.Decimal
	Reconciled     bool
	SummaryRollsUp bool
}

// Validator recomputes the change in investment value.
type Validator struct {
	table     *basket.Table
	filter    ActivityFilter
	tolerance decimal.Decimal
}

// New creates a Validator. A zero tolerance selects DefaultTolerance.
func New(table *basket.Table, filter ActivityFilter, tolerance decimal.Decimal) (*Validator, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: validator needs a basket table", common.ErrMissingConfig)
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("%w: tolerance %s is negative", common.ErrInvalidConfig, tolerance)
	}
	if tolerance.IsZero() {
		tolerance = DefaultTolerance
	}
	return &Validator{table: table, filter: filter, tolerance: tolerance}, nil
}

// Tolerance is the accepted absolute delta.
func (v *Validator) Tolerance() decimal.Decimal {
	return v.tolerance
}

// Validate computes Income + HoldingsChange - Purchases + Sales and compares
// it with the summary's stated change. A mismatch returns the full result
// together with a *common.ReconciliationMismatchError; callers treat it as
// advisory.
func (v *Validator) Validate(stmt *model.Statement) (*Result, error) {
	if stmt.Summary == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingSummary, stmt.Period)
	}

	res := &Result{
		Period:         stmt.Period.String(),
		Income:         v.Income(stmt.Income),
		HoldingsChange: v.HoldingsChange(stmt.Holdings),
		Stated:         model.Round(stmt.Summary.ChangeInvestmentValuePeriod),
		Tolerance:      v.tolerance,
	}
	res.Purchases, res.Sales = v.Trades(stmt.Activity)
	res.Expected = model.Round(res.Income.Add(res.HoldingsChange).Sub(res.Purchases).Add(res.Sales))
	res.Delta = model.Round(res.Expected.Sub(res.Stated))
	res.Reconciled = res.Delta.Abs().LessThanOrEqual(v.tolerance)
	res.SummaryRollsUp, res.SummaryDelta = stmt.Summary.Balanced(v.tolerance)

	if !res.Reconciled {
		return res, &common.ReconciliationMismatchError{
			Period:   res.Period,
			Expected: model.FormatAmount(res.Expected),
			Stated:   model.FormatAmount(res.Stated),
			Delta:    model.FormatAmount(res.Delta),
		}
	}
	return res, nil
}

// Income sums every income row, money-market and reinvestment rows included.
func (v *Validator) Income(rows []model.IncomeRecord) decimal.Decimal {
	total := decimal.Zero
	for i := range rows {
		total = total.Add(rows[i].Amount)
	}
	return model.Round(total)
}

// HoldingsChange sums per-holding change across non-money-market positions.
func (v *Validator) HoldingsChange(holdings []model.HoldingRecord) decimal.Decimal {
	total := decimal.Zero
	for i := range holdings {
		if v.table.IsMoneyMarket(holdings[i].Symbol) {
			continue
		}
		total = total.Add(holdings[i].Change())
	}
	return model.Round(total)
}

// Trades sums bought and sold magnitudes, skipping rows the filter excludes.
func (v *Validator) Trades(rows []model.ActivityRecord) (purchases, sales decimal.Decimal) {
	purchases, sales = decimal.Zero, decimal.Zero
	for i := range rows {
		r := &rows[i]
		if v.filter != nil {
			if _, excluded := v.filter.Exclusion(r); excluded {
				continue
			}
		} else if v.table.IsMoneyMarket(r.Symbol) {
			continue
		}
		switch r.Action {
		case model.ActionBought:
			purchases = purchases.Add(r.Magnitude())
		case model.ActionSold:
			sales = sales.Add(r.Magnitude())
		}
	}
	return model.Round(purchases), model.Round(sales)
}

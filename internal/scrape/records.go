package scrape

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Column layouts of each section.
var (
	SummaryColumns = []string{
		"period_start", "period_end",
		"beginning_value_period", "additions_period", "subtractions_period",
		"change_investment_value_period", "ending_value_period",
		"beginning_value_ytd", "additions_ytd", "subtractions_ytd",
		"change_investment_value_ytd", "ending_value_ytd",
		"income_period", "income_ytd",
	}
	IncomeColumns = []string{
		"settlement_date", "security_name", "symbol", "cusip", "description", "quantity", "price", "amount",
	}
	ActivityColumns = []string{
		"settlement_date", "action", "symbol", "security_name", "quantity", "price", "amount",
		"transaction_cost", "basket", "cost_basis",
	}
	HoldingsColumns = []string{
		"symbol", "description", "quantity", "price", "beginning_value", "ending_value", "cost_basis", "unrealized_gain",
	}
)

// unavailable marks a holding with no prior-period value.
const unavailable = "unavailable"

// row is one CSV record addressed by column name.
type row struct {
	cols   map[string]int
	values []string
	line   int
	err    error
}

func (r *row) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r *row) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("line %d column %s: %w", r.line, name, err)
	}
}

func (r *row) required(name string) string {
	v := r.str(name)
	if v == "" {
		r.fail(name, fmt.Errorf("%w: value required", common.ErrInvalidRecord))
	}
	return v
}

func (r *row) date(name string) time.Time {
	v, err := model.ParseDate(r.str(name))
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *row) amount(name string) decimal.Decimal {
	v, err := model.ParseAmount(r.str(name))
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *row) optionalAmount(name string) *decimal.Decimal {
	v, err := model.ParseOptionalAmount(r.str(name))
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *row) number(name string) decimal.Decimal {
	v, err := model.ParseDecimal(r.str(name))
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *row) optionalNumber(name string) *decimal.Decimal {
	v, err := model.ParseOptionalDecimal(r.str(name))
	if err != nil {
		r.fail(name, err)
	}
	return v
}

// readRows reads a header and yields non-blank rows. Every required column
// must be present in the header.
func readRows(rd io.Reader, required []string, fn func(*row) error) error {
	reader := csv.NewReader(rd)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty file", common.ErrInvalidRecord)
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("%w: missing column %s", common.ErrInvalidRecord, name)
		}
	}

	line := 1
	for {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if blank(values) {
			continue
		}
		if err := fn(&row{cols: cols, values: values, line: line}); err != nil {
			return err
		}
	}
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadSummary reads a summary file, which must hold exactly one data row.
func ReadSummary(rd io.Reader) (*model.SummaryRecord, error) {
	var out []*model.SummaryRecord
	err := readRows(rd, SummaryColumns, func(r *row) error {
		s := &model.SummaryRecord{
			PeriodStart:                 r.date("period_start"),
			PeriodEnd:                   r.date("period_end"),
			BeginningValuePeriod:        r.amount("beginning_value_period"),
			AdditionsPeriod:             r.amount("additions_period"),
			SubtractionsPeriod:          r.amount("subtractions_period"),
			ChangeInvestmentValuePeriod: r.amount("change_investment_value_period"),
			EndingValuePeriod:           r.amount("ending_value_period"),
			BeginningValueYTD:           r.amount("beginning_value_ytd"),
			AdditionsYTD:                r.amount("additions_ytd"),
			SubtractionsYTD:             r.amount("subtractions_ytd"),
			ChangeInvestmentValueYTD:    r.amount("change_investment_value_ytd"),
			EndingValueYTD:              r.amount("ending_value_ytd"),
			IncomePeriod:                r.amount("income_period"),
			IncomeYTD:                   r.amount("income_ytd"),
		}
		if r.err != nil {
			return r.err
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", r.line, err)
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return nil, fmt.Errorf("%w: summary has no data rows", common.ErrMissingSummary)
	case 1:
		return out[0], nil
	default:
		return nil, fmt.Errorf("%w: summary has %d data rows, expected 1", common.ErrInvalidRecord, len(out))
	}
}

// ReadIncome reads income rows.
func ReadIncome(rd io.Reader) ([]model.IncomeRecord, error) {
	var out []model.IncomeRecord
	err := readRows(rd, []string{"settlement_date", "symbol", "description", "amount"}, func(r *row) error {
		rec := model.IncomeRecord{
			SettlementDate: r.date("settlement_date"),
			SecurityName:   r.str("security_name"),
			Symbol:         r.required("symbol"),
			CUSIP:          r.str("cusip"),
			Description:    r.str("description"),
			Quantity:       r.optionalNumber("quantity"),
			Price:          r.optionalNumber("price"),
			Amount:         r.amount("amount"),
		}
		kind, err := model.ParseIncomeKind(rec.Description)
		if err != nil {
			r.fail("description", err)
		}
		rec.Kind = kind
		if r.err != nil {
			return r.err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ReadActivity reads buy and sell rows.
func ReadActivity(rd io.Reader) ([]model.ActivityRecord, error) {
	var out []model.ActivityRecord
	err := readRows(rd, []string{"settlement_date", "action", "symbol", "quantity", "price", "amount"}, func(r *row) error {
		text := r.required("action")
		rec := model.ActivityRecord{
			SettlementDate:  r.date("settlement_date"),
			Action:          model.ParseAction(text),
			ActionText:      text,
			Symbol:          r.required("symbol"),
			SecurityName:    r.str("security_name"),
			Quantity:        r.number("quantity"),
			Price:           r.number("price"),
			Amount:          r.amount("amount"),
			TransactionCost: r.optionalAmount("transaction_cost"),
			BasketID:        r.str("basket"),
			CostBasis:       r.optionalAmount("cost_basis"),
		}
		if r.err != nil {
			return r.err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ReadHoldings reads positions. A beginning value of "unavailable" means the
// position is new this period.
func ReadHoldings(rd io.Reader) ([]model.HoldingRecord, error) {
	var out []model.HoldingRecord
	err := readRows(rd, []string{"symbol", "quantity", "price", "ending_value"}, func(r *row) error {
		rec := model.HoldingRecord{
			Symbol:         r.required("symbol"),
			Description:    r.str("description"),
			Quantity:       r.number("quantity"),
			Price:          r.number("price"),
			BeginningValue: r.optionalAmount("beginning_value"),
			EndingValue:    r.amount("ending_value"),
			CostBasis:      r.optionalAmount("cost_basis"),
			UnrealizedGain: r.optionalAmount("unrealized_gain"),
		}
		if r.err != nil {
			return r.err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	return cw.WriteAll(rows)
}

// WriteSummary writes a single-row summary file.
func WriteSummary(w io.Writer, s *model.SummaryRecord) error {
	return writeAll(w, SummaryColumns, [][]string{{
		model.FormatDate(s.PeriodStart),
		model.FormatDate(s.PeriodEnd),
		model.FormatAmount(s.BeginningValuePeriod),
		model.FormatAmount(s.AdditionsPeriod),
		model.FormatAmount(s.SubtractionsPeriod),
		model.FormatAmount(s.ChangeInvestmentValuePeriod),
		model.FormatAmount(s.EndingValuePeriod),
		model.FormatAmount(s.BeginningValueYTD),
		model.FormatAmount(s.AdditionsYTD),
		model.FormatAmount(s.SubtractionsYTD),
		model.FormatAmount(s.ChangeInvestmentValueYTD),
		model.FormatAmount(s.EndingValueYTD),
		model.FormatAmount(s.IncomePeriod),
		model.FormatAmount(s.IncomeYTD),
	}})
}

// WriteIncome writes income rows.
func WriteIncome(w io.Writer, rows []model.IncomeRecord) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		desc := r.Description
		if desc == "" {
			desc = incomeDescription(r.Kind)
		}
		out = append(out, []string{
			model.FormatDate(r.SettlementDate),
			r.SecurityName,
			r.Symbol,
			r.CUSIP,
			desc,
			model.FormatOptional(r.Quantity),
			model.FormatOptional(r.Price),
			model.FormatAmount(r.Amount),
		})
	}
	return writeAll(w, IncomeColumns, out)
}

// WriteActivity writes activity rows.
func WriteActivity(w io.Writer, rows []model.ActivityRecord) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		text := r.ActionText
		if text == "" {
			text = actionText(r.Action)
		}
		out = append(out, []string{
			model.FormatDate(r.SettlementDate),
			text,
			r.Symbol,
			r.SecurityName,
			r.Quantity.String(),
			r.Price.String(),
			model.FormatAmount(r.Amount),
			model.FormatOptional(r.TransactionCost),
			r.BasketID,
			model.FormatOptional(r.CostBasis),
		})
	}
	return writeAll(w, ActivityColumns, out)
}

// WriteHoldings writes positions.
func WriteHoldings(w io.Writer, rows []model.HoldingRecord) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		begin := unavailable
		if r.BeginningValue != nil {
			begin = model.FormatAmount(*r.BeginningValue)
		}
		out = append(out, []string{
			r.Symbol,
			r.Description,
			r.Quantity.String(),
			r.Price.String(),
			begin,
			model.FormatAmount(r.EndingValue),
			model.FormatOptional(r.CostBasis),
			model.FormatOptional(r.UnrealizedGain),
		})
	}
	return writeAll(w, HoldingsColumns, out)
}

func incomeDescription(kind model.IncomeKind) string {
	switch kind {
	case model.IncomeReinvestment:
		return "Reinvestment"
	case model.IncomeInterest:
		return "Interest Earned"
	default:
		return "Dividend Received"
	}
}

func actionText(a model.Action) string {
	switch a {
	case model.ActionBought:
		return "You Bought"
	case model.ActionSold:
		return "You Sold"
	default:
		return string(a)
	}
}

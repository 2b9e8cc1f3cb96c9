package plaid

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// investmentTxn is the subset of a Plaid investment transaction the ledger uses.
type investmentTxn struct {
	ID         string
	Date       string
	Name       string
	Type       string // buy, sell, cash, fee, transfer, cancel
	Subtype    string
	SecurityID string
	Quantity   float64
	Price      float64
	Amount     float64 // positive is cash out of the account
	Fees       float64
}

type holding struct {
	CostBasis  *float64
	SecurityID string
	Quantity   float64
	Price      float64
	Value      float64
}

type security struct {
	Ticker string
	Name   string
	CUSIP  string
}

func buildStatement(period model.Period, txns []investmentTxn, holdings []holding, secs map[string]security) *model.Statement {
	stmt := &model.Statement{Period: period}

	for _, t := range txns {
		date, err := model.ParseDate(t.Date)
		if err != nil {
			slog.Warn("Skipping Plaid transaction with bad date", "id", t.ID, "date", t.Date)
			continue
		}
		sec := secFor(secs, t.SecurityID, t.Name)
		amount := model.Round(decimal.NewFromFloat(t.Amount)).Abs()
		subtype := strings.ToLower(t.Subtype)

		switch {
		case t.Type == "buy" && strings.Contains(subtype, "reinvest"):
			qty := decimal.NewFromFloat(t.Quantity).Abs()
			price := decimal.NewFromFloat(t.Price)
			stmt.Income = append(stmt.Income, model.IncomeRecord{
				SettlementDate: date,
				SecurityName:   sec.Name,
				Symbol:         sec.Ticker,
				CUSIP:          sec.CUSIP,
				Description:    "Reinvestment",
				Kind:           model.IncomeReinvestment,
				Quantity:       &qty,
				Price:          &price,
				Amount:         amount.Neg(),
			})

		case t.Type == "cash" && isIncome(subtype):
			kind, desc := model.IncomeDividend, "Dividend Received"
			if strings.Contains(subtype, "interest") {
				kind, desc = model.IncomeInterest, "Interest Earned"
			}
			stmt.Income = append(stmt.Income, model.IncomeRecord{
				SettlementDate: date,
				SecurityName:   sec.Name,
				Symbol:         sec.Ticker,
				CUSIP:          sec.CUSIP,
				Description:    desc,
				Kind:           kind,
				Amount:         amount,
			})

		case t.Type == "buy" || t.Type == "sell":
			rec := model.ActivityRecord{
				SettlementDate: date,
				Action:         model.ActionBought,
				ActionText:     "You Bought",
				Symbol:         sec.Ticker,
				SecurityName:   sec.Name,
				Quantity:       decimal.NewFromFloat(t.Quantity).Abs(),
				Price:          decimal.NewFromFloat(t.Price),
				Amount:         amount.Neg(),
			}
			if t.Type == "sell" {
				rec.Action, rec.ActionText, rec.Amount = model.ActionSold, "You Sold", amount
			}
			if t.Fees != 0 {
				fees := model.Round(decimal.NewFromFloat(t.Fees)).Abs()
				rec.TransactionCost = &fees
			}
			stmt.Activity = append(stmt.Activity, rec)

		default:
			slog.Debug("Skipping Plaid investment transaction",
				"id", t.ID,
				"type", t.Type,
				"subtype", t.Subtype)
		}
	}

	for _, h := range holdings {
		sec := secFor(secs, h.SecurityID, "")
		rec := model.HoldingRecord{
			Symbol:      sec.Ticker,
			Description: sec.Name,
			Quantity:    decimal.NewFromFloat(h.Quantity),
			Price:       decimal.NewFromFloat(h.Price),
			EndingValue: model.Round(decimal.NewFromFloat(h.Value)),
		}
		if h.CostBasis != nil {
			rec.CostBasis = model.DecimalPtr(model.Round(decimal.NewFromFloat(*h.CostBasis)))
		}
		stmt.Holdings = append(stmt.Holdings, rec)
	}

	sort.SliceStable(stmt.Income, func(i, j int) bool {
		return stmt.Income[i].SettlementDate.Before(stmt.Income[j].SettlementDate)
	})
	sort.SliceStable(stmt.Activity, func(i, j int) bool {
		return stmt.Activity[i].SettlementDate.Before(stmt.Activity[j].SettlementDate)
	})
	return stmt
}

func isIncome(subtype string) bool {
	return strings.Contains(subtype, "dividend") ||
		strings.Contains(subtype, "interest") ||
		strings.Contains(subtype, "capital gain")
}

// secFor returns the security. Without a ticker the security id stands in,
// then the transaction name.
func secFor(secs map[string]security, id, name string) security {
	sec, ok := secs[id]
	if !ok {
		sec = security{Name: name}
	}
	sec.Ticker = strings.ToUpper(strings.TrimSpace(sec.Ticker))
	if sec.Ticker == "" {
		sec.Ticker = id
	}
	if sec.Ticker == "" {
		sec.Ticker = strings.ToUpper(strings.TrimSpace(name))
	}
	return sec
}

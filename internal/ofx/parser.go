// Package ofx converts brokerage OFX/QFX downloads into statement records.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Options controls how a download is mapped onto one period.
type Options struct {
	// PriorHoldings supplies beginning values; positions absent here are
	// treated as new this period.
	PriorHoldings []model.HoldingRecord
	Period        model.Period
}

// Parser implements OFX/QFX investment statement parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare opening tag
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX investment download into a statement for
// opts.Period. Transactions settling outside the period are dropped. OFX
// carries no account summary, so the statement's Summary is nil.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader, opts Options) (*model.Statement, error) {
	if err := opts.Period.Validate(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := p.Convert(resp, opts)
	common.LoggerFrom(ctx).Info("Parsed OFX file",
		"period", opts.Period.String(),
		"income_rows", len(stmt.Income),
		"activity_rows", len(stmt.Activity),
		"holdings", len(stmt.Holdings))
	return stmt, nil
}

// Convert maps a parsed response onto a statement.
func (p *Parser) Convert(resp *ofxgo.Response, opts Options) *model.Statement {
	stmt := &model.Statement{Period: opts.Period}
	secs := securities(resp)

	var invStmts int
	for _, msg := range resp.InvStmt {
		inv, ok := msg.(*ofxgo.InvStatementResponse)
		if !ok {
			continue
		}
		invStmts++
		if inv.InvTranList != nil {
			for _, tran := range inv.InvTranList.InvTransactions {
				p.convertTransaction(stmt, tran, secs, opts.Period)
			}
		}
		for _, pos := range inv.InvPosList {
			if h, ok := convertPosition(pos, secs); ok {
				stmt.Holdings = append(stmt.Holdings, h)
			}
		}
	}
	model.FillBeginningValues(stmt.Holdings, opts.PriorHoldings)
	stmt.PriorHoldings = opts.PriorHoldings
	if invStmts == 0 {
		slog.Warn("OFX file has no investment statements")
	}

	sort.SliceStable(stmt.Income, func(i, j int) bool {
		return stmt.Income[i].SettlementDate.Before(stmt.Income[j].SettlementDate)
	})
	sort.SliceStable(stmt.Activity, func(i, j int) bool {
		return stmt.Activity[i].SettlementDate.Before(stmt.Activity[j].SettlementDate)
	})
	return stmt
}

func (p *Parser) convertTransaction(stmt *model.Statement, tran ofxgo.InvTransaction, secs map[string]security, period model.Period) {
	switch t := tran.(type) {
	case ofxgo.Income:
		date := settleDate(t.InvTran)
		if !inPeriod(date, period) {
			return
		}
		sec := lookup(secs, t.SecID)
		kind, desc := model.IncomeDividend, "Dividend Received"
		if t.IncomeType == ofxgo.IncomeTypeInterest {
			kind, desc = model.IncomeInterest, "Interest Earned"
		}
		stmt.Income = append(stmt.Income, model.IncomeRecord{
			SettlementDate: date,
			SecurityName:   sec.name,
			Symbol:         sec.ticker,
			CUSIP:          sec.cusip,
			Description:    desc,
			Kind:           kind,
			Amount:         money(t.Total).Abs(),
		})

	case ofxgo.Reinvest:
		date := settleDate(t.InvTran)
		if !inPeriod(date, period) {
			return
		}
		sec := lookup(secs, t.SecID)
		total := money(t.Total).Abs()
		units := number(t.Units)
		price := number(t.UnitPrice)
		// a reinvestment pays the distribution and spends it in one record
		stmt.Income = append(stmt.Income,
			model.IncomeRecord{
				SettlementDate: date,
				SecurityName:   sec.name,
				Symbol:         sec.ticker,
				CUSIP:          sec.cusip,
				Description:    "Dividend Received",
				Kind:           model.IncomeDividend,
				Amount:         total,
			},
			model.IncomeRecord{
				SettlementDate: date,
				SecurityName:   sec.name,
				Symbol:         sec.ticker,
				CUSIP:          sec.cusip,
				Description:    "Reinvestment",
				Kind:           model.IncomeReinvestment,
				Quantity:       &units,
				Price:          &price,
				Amount:         total.Neg(),
			})

	case ofxgo.BuyStock:
		p.appendBuy(stmt, t.InvBuy, secs, period)
	case ofxgo.BuyMF:
		p.appendBuy(stmt, t.InvBuy, secs, period)
	case ofxgo.BuyOther:
		p.appendBuy(stmt, t.InvBuy, secs, period)
	case ofxgo.SellStock:
		p.appendSell(stmt, t.InvSell, secs, period)
	case ofxgo.SellMF:
		p.appendSell(stmt, t.InvSell, secs, period)
	case ofxgo.SellOther:
		p.appendSell(stmt, t.InvSell, secs, period)

	default:
		slog.Debug("Skipping unsupported OFX investment transaction", "type", tran.TransactionType())
	}
}

func (p *Parser) appendBuy(stmt *model.Statement, b ofxgo.InvBuy, secs map[string]security, period model.Period) {
	date := settleDate(b.InvTran)
	if !inPeriod(date, period) {
		return
	}
	sec := lookup(secs, b.SecID)
	stmt.Activity = append(stmt.Activity, model.ActivityRecord{
		SettlementDate:  date,
		Action:          model.ActionBought,
		ActionText:      actionText("You Bought", b.InvTran.Memo),
		Symbol:          sec.ticker,
		SecurityName:    sec.name,
		Quantity:        number(b.Units).Abs(),
		Price:           number(b.UnitPrice),
		Amount:          money(b.Total).Abs().Neg(),
		TransactionCost: cost(b.Commission, b.Fees),
	})
}

func (p *Parser) appendSell(stmt *model.Statement, s ofxgo.InvSell, secs map[string]security, period model.Period) {
	date := settleDate(s.InvTran)
	if !inPeriod(date, period) {
		return
	}
	sec := lookup(secs, s.SecID)
	stmt.Activity = append(stmt.Activity, model.ActivityRecord{
		SettlementDate:  date,
		Action:          model.ActionSold,
		ActionText:      actionText("You Sold", s.InvTran.Memo),
		Symbol:          sec.ticker,
		SecurityName:    sec.name,
		Quantity:        number(s.Units).Abs(),
		Price:           number(s.UnitPrice),
		Amount:          money(s.Total).Abs(),
		TransactionCost: cost(s.Commission, s.Fees),
	})
}

func convertPosition(pos ofxgo.Position, secs map[string]security) (model.HoldingRecord, bool) {
	var inv ofxgo.InvPosition
	switch t := pos.(type) {
	case ofxgo.StockPosition:
		inv = t.InvPos
	case ofxgo.MFPosition:
		inv = t.InvPos
	case ofxgo.OtherPosition:
		inv = t.InvPos
	default:
		return model.HoldingRecord{}, false
	}

	sec := lookup(secs, inv.SecID)
	return model.HoldingRecord{
		Symbol:      sec.ticker,
		Description: sec.name,
		Quantity:    number(inv.Units),
		Price:       number(inv.UnitPrice),
		EndingValue: money(inv.MktVal),
	}, true
}

type security struct {
	ticker string
	name   string
	cusip  string
}

// securities indexes the security list by unique id so transactions can be
// reported by ticker.
func securities(resp *ofxgo.Response) map[string]security {
	secs := make(map[string]security)
	for _, msg := range resp.SecList {
		list, ok := msg.(*ofxgo.SecurityList)
		if !ok {
			continue
		}
		for _, s := range list.Securities {
			var info ofxgo.SecInfo
			switch t := s.(type) {
			case ofxgo.StockInfo:
				info = t.SecInfo
			case ofxgo.MFInfo:
				info = t.SecInfo
			case ofxgo.OtherInfo:
				info = t.SecInfo
			case ofxgo.DebtInfo:
				info = t.SecInfo
			default:
				continue
			}
			secs[string(info.SecID.UniqueID)] = security{
				ticker: strings.ToUpper(strings.TrimSpace(string(info.Ticker))),
				name:   strings.TrimSpace(string(info.SecName)),
				cusip:  string(info.SecID.UniqueID),
			}
		}
	}
	return secs
}

// lookup falls back to the raw unique id when the security list has no entry.
func lookup(secs map[string]security, id ofxgo.SecurityID) security {
	key := string(id.UniqueID)
	if sec, ok := secs[key]; ok && sec.ticker != "" {
		return sec
	}
	return security{ticker: key, cusip: key}
}

func settleDate(t ofxgo.InvTran) time.Time {
	d := t.DtTrade.Time
	if t.DtSettle != nil && !t.DtSettle.IsZero() {
		d = t.DtSettle.Time
	}
	d = d.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func inPeriod(d time.Time, p model.Period) bool {
	return !d.Before(p.Start()) && !d.After(p.End())
}

func actionText(action string, memo ofxgo.String) string {
	if m := strings.TrimSpace(string(memo)); m != "" {
		return action + " - " + m
	}
	return action
}

func number(a ofxgo.Amount) decimal.Decimal {
	d, err := decimal.NewFromString(a.FloatString(8))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func money(a ofxgo.Amount) decimal.Decimal {
	return model.Round(number(a))
}

func cost(amounts ...ofxgo.Amount) *decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(money(a).Abs())
	}
	if total.IsZero() {
		return nil
	}
	return &total
}

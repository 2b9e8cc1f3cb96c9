// Package journal turns entry groups into balanced, numbered journal entries.
package journal

import (
	"errors"
	"fmt"

	"github.com/Veraticus/statement-ledger/internal/accounts"
	"github.com/Veraticus/statement-ledger/internal/basket"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
)

// Default ledger accounts.
const (
	DefaultCashAccount   = "Cash - Fidelity Cash Management Account"
	DefaultIncomeAccount = "Income - Ordinary Dividends"
	DefaultPrefix        = "MMW-"
)

// Config holds the read-only tables a Builder needs.
type Config struct {
	Baskets       *basket.Table
	Chart         *accounts.Chart
	Prefix        string
	CashAccount   string
	IncomeAccount string
}

// Builder builds journal entries. It is safe for concurrent use; numbering
// state lives in the caller's Sequencer.
type Builder struct {
	cfg Config
}

// NewBuilder validates cfg and fills defaults.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Baskets == nil {
		return nil, fmt.Errorf("%w: journal builder needs a basket table", common.ErrMissingConfig)
	}
	if cfg.Chart == nil {
		return nil, fmt.Errorf("%w: journal builder needs a chart of accounts", common.ErrMissingConfig)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.CashAccount == "" {
		cfg.CashAccount = DefaultCashAccount
	}
	if cfg.IncomeAccount == "" {
		cfg.IncomeAccount = DefaultIncomeAccount
	}
	return &Builder{cfg: cfg}, nil
}

// Prefix is the journal number prefix entries are built with.
func (b *Builder) Prefix() string {
	return b.cfg.Prefix
}

// Build turns one group into one entry. The suffix is taken from seq only
// once the entry is known to balance, so failed groups leave no gaps.
func (b *Builder) Build(g *model.EntryGroup, seq *Sequencer) (*model.JournalEntry, error) {
	var (
		entry *model.JournalEntry
		err   error
	)
	switch g.Kind {
	case model.KindDividend:
		entry = b.dividend(g)
	case model.KindPurchase:
		entry, err = b.trade(g, "PUR", "Purchase")
	case model.KindSale:
		entry, err = b.trade(g, "SAL", "Sale")
	case model.KindUnrealized:
		entry, err = b.unrealized(g)
	default:
		err = fmt.Errorf("unknown entry kind %q", g.Kind)
	}
	if err != nil {
		return nil, err
	}

	if err := Check(entry); err != nil {
		return nil, err
	}

	suffix, err := seq.Next(g.Kind)
	if err != nil {
		return nil, err
	}
	entry.NumberSuffix = suffix
	return entry, nil
}

// Check enforces debits == credits. It never adjusts the entry.
func Check(e *model.JournalEntry) error {
	debits, credits := e.Totals()
	if !debits.Equal(credits) {
		return &common.UnbalancedEntryError{
			Reference: e.ReferenceNumber,
			Debits:    model.FormatAmount(debits),
			Credits:   model.FormatAmount(credits),
		}
	}
	return nil
}

func (b *Builder) newEntry(g *model.EntryGroup, ref, notes string) *model.JournalEntry {
	return &model.JournalEntry{
		Kind:            g.Kind,
		JournalDate:     g.Date,
		ReferenceNumber: ref,
		NumberPrefix:    b.cfg.Prefix,
		Notes:           notes,
	}
}

func (b *Builder) dividend(g *model.EntryGroup) *model.JournalEntry {
	date := model.FormatDate(g.Date)
	symbols := g.SymbolList()
	e := b.newEntry(g, "DIV-"+date, fmt.Sprintf("%s Dividends - %s", date, symbols))

	for _, m := range g.Members {
		if m.Amount.IsNegative() {
			e.Lines = append(e.Lines, model.CreditLine(b.cfg.CashAccount, "Reinvestment - "+m.Symbol, m.Amount.Neg()))
			continue
		}
		e.Lines = append(e.Lines, model.DebitLine(b.cfg.CashAccount, "Dividend - "+m.Symbol, m.Amount))
	}

	if g.Total.IsNegative() {
		e.Lines = append(e.Lines, model.DebitLine(b.cfg.IncomeAccount, "Income - "+symbols, g.Total.Neg()))
	} else {
		e.Lines = append(e.Lines, model.CreditLine(b.cfg.IncomeAccount, "Income - "+symbols, g.Total))
	}
	return e
}

// trade builds purchases and sales. A sale mirrors a purchase: the cash
// side and the per-symbol investment side swap debit and credit.
func (b *Builder) trade(g *model.EntryGroup, code, verb string) (*model.JournalEntry, error) {
	date := model.FormatDate(g.Date)
	symbols := g.SymbolList()
	ref := fmt.Sprintf("%s-%s-%s", code, date, g.Key())

	subject := symbols
	if g.BasketID != "" {
		name, err := b.cfg.Baskets.NameOf(g.BasketID)
		if err != nil {
			return nil, withDate(err, date)
		}
		subject = name + " - " + symbols
	}
	e := b.newEntry(g, ref, fmt.Sprintf("%s %s - %s", date, verb, subject))

	legs := make([]model.JournalLine, 0, len(g.Members))
	for _, m := range g.Members {
		account, err := b.cfg.Chart.AccountFor(m.Symbol)
		if err != nil {
			return nil, &common.UnmappedAccountError{Symbol: m.Symbol, Reference: ref}
		}
		desc := tradeDescription(verb, m)
		if g.Kind == model.KindSale {
			legs = append(legs, model.CreditLine(account, desc, m.Amount))
		} else {
			legs = append(legs, model.DebitLine(account, desc, m.Amount))
		}
	}

	if g.Kind == model.KindSale {
		e.Lines = append(e.Lines, model.DebitLine(b.cfg.CashAccount, "Proceeds from "+subject, g.Total))
		e.Lines = append(e.Lines, legs...)
	} else {
		e.Lines = append(e.Lines, legs...)
		e.Lines = append(e.Lines, model.CreditLine(b.cfg.CashAccount, "Cash for "+symbols, g.Total))
	}
	return e, nil
}

func (b *Builder) unrealized(g *model.EntryGroup) (*model.JournalEntry, error) {
	date := model.FormatDate(g.Date)
	bk, err := b.cfg.Baskets.Get(g.BasketID)
	if err != nil {
		return nil, withDate(err, date)
	}
	fmv, gain := MarkToMarketAccounts(bk)

	e := b.newEntry(g, fmt.Sprintf("UNR-%s-%s", date, bk.ID), fmt.Sprintf("%s Mark-to-Market - %s", date, bk.Name))
	amount := g.Total.Abs()
	if g.Total.IsNegative() {
		e.Lines = append(e.Lines,
			model.DebitLine(gain, "Unrealized Loss - "+bk.Name, amount),
			model.CreditLine(fmv, "FMV Adjustment - "+bk.Name, amount),
		)
	} else {
		e.Lines = append(e.Lines,
			model.DebitLine(fmv, "FMV Adjustment - "+bk.Name, amount),
			model.CreditLine(gain, "Unrealized Gain - "+bk.Name, amount),
		)
	}
	return e, nil
}

// MarkToMarketAccounts returns the basket's FMV adjustment and unrealized
// gain accounts, deriving names from the basket when unset.
func MarkToMarketAccounts(bk model.Basket) (fmv, gain string) {
	fmv = bk.FMVAccount
	if fmv == "" {
		fmv = "Trading Securities - " + bk.Name + " - FMV Adjustment"
	}
	gain = bk.UnrealizedAccount
	if gain == "" {
		gain = "Unrealized Gain - Equity Baskets - " + bk.Name
	}
	return fmv, gain
}

func tradeDescription(verb string, m model.GroupMember) string {
	if m.Quantity.IsZero() {
		return verb + " - " + m.Symbol
	}
	qty := m.Quantity.Abs()
	price := m.Amount.Div(qty)
	return fmt.Sprintf("%s - %s - %s @ ~ $%s", verb, m.Symbol, qty.StringFixed(3), price.StringFixed(2))
}

func withDate(err error, date string) error {
	var unknown *common.UnknownBasketError
	if errors.As(err, &unknown) {
		return &common.UnknownBasketError{BasketID: unknown.BasketID, Symbol: unknown.Symbol, Date: date}
	}
	return err
}

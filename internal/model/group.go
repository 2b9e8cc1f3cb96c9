package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GroupMember is one symbol's combined rows inside an entry group.
type GroupMember struct {
	Symbol       string
	SecurityName string
	Quantity     decimal.Decimal
	Amount       decimal.Decimal
	Rows         int
}

// EntryGroup is the unit that becomes exactly one journal entry.
type EntryGroup struct {
	Date     time.Time
	Kind     EntryKind
	BasketID string // empty for dividend and unbasketed groups
	Symbol   string // set for unbasketed pseudo-groups
	Members  []GroupMember
	Total    decimal.Decimal
}

// Key identifies the group within its date: the basket id or, for
// unbasketed groups, the symbol.
func (g *EntryGroup) Key() string {
	if g.BasketID != "" {
		return g.BasketID
	}
	return g.Symbol
}

// Symbols lists member symbols in first-seen order.
func (g *EntryGroup) Symbols() []string {
	symbols := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		symbols = append(symbols, m.Symbol)
	}
	return symbols
}

// SymbolList joins the member symbols with ", ".
func (g *EntryGroup) SymbolList() string {
	return strings.Join(g.Symbols(), ", ")
}

// Basket is a named group of securities tracked as one investment unit.
type Basket struct {
	ID                string
	Name              string
	FMVAccount        string
	UnrealizedAccount string
	Symbols           []string
}

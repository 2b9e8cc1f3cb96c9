// Package basket resolves securities to the baskets they are booked under.
package basket

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
)

var (
	tagPattern = regexp.MustCompile(`BASKET:(\d+)`)
	idPattern  = regexp.MustCompile(`^\d+$`)
)

// DefaultMoneyMarket lists the cash sweep funds found on Fidelity statements.
var DefaultMoneyMarket = []string{"FDRXX", "SPAXX", "FCASH"}

// Table is the static basket configuration. It is immutable once built and
// safe to share between concurrent runs.
type Table struct {
	baskets     map[string]model.Basket
	bySymbol    map[string]string
	moneyMarket map[string]struct{}
	unbasketed  map[string]struct{}
	order       []string
}

// NewTable validates and indexes the basket configuration.
func NewTable(baskets []model.Basket, moneyMarket, unbasketed []string) (*Table, error) {
	t := &Table{
		baskets:     make(map[string]model.Basket, len(baskets)),
		bySymbol:    make(map[string]string),
		moneyMarket: toSet(moneyMarket),
		unbasketed:  toSet(unbasketed),
	}

	for _, b := range baskets {
		if !idPattern.MatchString(b.ID) {
			return nil, fmt.Errorf("%w: basket id %q must be numeric", common.ErrInvalidConfig, b.ID)
		}
		if strings.TrimSpace(b.Name) == "" {
			return nil, fmt.Errorf("%w: basket %s has no name", common.ErrInvalidConfig, b.ID)
		}
		if _, dup := t.baskets[b.ID]; dup {
			return nil, fmt.Errorf("%w: basket %s configured twice", common.ErrInvalidConfig, b.ID)
		}

		symbols := make([]string, 0, len(b.Symbols))
		for _, s := range b.Symbols {
			s = normalize(s)
			if other, taken := t.bySymbol[s]; taken {
				return nil, fmt.Errorf("%w: symbol %s is in baskets %s and %s", common.ErrInvalidConfig, s, other, b.ID)
			}
			t.bySymbol[s] = b.ID
			symbols = append(symbols, s)
		}
		b.Symbols = symbols

		t.baskets[b.ID] = b
		t.order = append(t.order, b.ID)
	}

	return t, nil
}

// ResolveByTag extracts the basket id from a BASKET:NNNNN marker in free text.
// The id is not checked against the table; NameOf does that.
func (t *Table) ResolveByTag(text string) (string, bool) {
	m := tagPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ResolveBySymbol looks a symbol up in the membership table. Money-market
// funds and allowlisted unbasketed symbols never resolve.
func (t *Table) ResolveBySymbol(symbol string) (string, bool) {
	symbol = normalize(symbol)
	if t.IsMoneyMarket(symbol) || t.IsUnbasketed(symbol) {
		return "", false
	}
	id, ok := t.bySymbol[symbol]
	return id, ok
}

// NameOf returns the basket's display name.
func (t *Table) NameOf(id string) (string, error) {
	b, err := t.Get(id)
	if err != nil {
		return "", err
	}
	return b.Name, nil
}

// Get returns the configured basket.
func (t *Table) Get(id string) (model.Basket, error) {
	b, ok := t.baskets[id]
	if !ok {
		return model.Basket{}, &common.UnknownBasketError{BasketID: id}
	}
	return b, nil
}

// Baskets returns the baskets in configuration order.
func (t *Table) Baskets() []model.Basket {
	out := make([]model.Basket, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.baskets[id])
	}
	return out
}

// IsMoneyMarket reports whether symbol is a cash-equivalent fund.
func (t *Table) IsMoneyMarket(symbol string) bool {
	_, ok := t.moneyMarket[normalize(symbol)]
	return ok
}

// IsUnbasketed reports whether symbol is allowlisted as never belonging to a basket.
func (t *Table) IsUnbasketed(symbol string) bool {
	_, ok := t.unbasketed[normalize(symbol)]
	return ok
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func toSet(symbols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[normalize(s)] = struct{}{}
	}
	return set
}

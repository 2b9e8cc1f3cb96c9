// Package accounts maps security symbols to chart-of-accounts entries.
package accounts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/common"
)

// Account is one chart-of-accounts row.
type Account struct {
	Name   string
	Code   string
	Type   string
	Symbol string
}

// Chart is an immutable symbol to account lookup.
type Chart struct {
	bySymbol map[string]Account
	accounts []Account
}

// NewChart builds a chart from explicit accounts. Accounts without a symbol
// are kept for listing but cannot be looked up.
func NewChart(accounts []Account) (*Chart, error) {
	c := &Chart{bySymbol: make(map[string]Account)}
	for _, a := range accounts {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("%w: account with empty name", common.ErrInvalidConfig)
		}
		if a.Symbol == "" {
			a.Symbol = SymbolOf(a.Name)
		}
		a.Symbol = strings.ToUpper(a.Symbol)
		if a.Symbol != "" {
			if prev, dup := c.bySymbol[a.Symbol]; dup && prev.Name != a.Name {
				return nil, fmt.Errorf("%w: symbol %s maps to %q and %q", common.ErrInvalidConfig, a.Symbol, prev.Name, a.Name)
			}
			c.bySymbol[a.Symbol] = a
		}
		c.accounts = append(c.accounts, a)
	}
	return c, nil
}

// FromMap builds a chart from symbol to account-name pairs.
func FromMap(m map[string]string) (*Chart, error) {
	accounts := make([]Account, 0, len(m))
	for symbol, name := range m {
		accounts = append(accounts, Account{Name: name, Symbol: symbol})
	}
	return NewChart(accounts)
}

// LoadFile reads a chart-of-accounts CSV export.
func LoadFile(path string) (*Chart, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open chart of accounts: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadCSV(f)
}

// LoadCSV reads a chart of accounts with "Account Name" and "Account Code"
// columns and an optional "Account Type" column.
func LoadCSV(r io.Reader) (*Chart, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read chart of accounts header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	nameCol, ok := cols["Account Name"]
	if !ok {
		return nil, fmt.Errorf("%w: chart of accounts has no Account Name column", common.ErrInvalidConfig)
	}

	var accounts []Account
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read chart of accounts: %w", err)
		}
		name := field(row, nameCol)
		if name == "" {
			continue
		}
		accounts = append(accounts, Account{
			Name: name,
			Code: fieldByName(row, cols, "Account Code"),
			Type: fieldByName(row, cols, "Account Type"),
		})
	}
	return NewChart(accounts)
}

// Merge returns a chart with overrides layered over c.
func (c *Chart) Merge(overrides *Chart) *Chart {
	merged := &Chart{bySymbol: make(map[string]Account, len(c.bySymbol))}
	for sym, a := range c.bySymbol {
		merged.bySymbol[sym] = a
	}
	merged.accounts = append(merged.accounts, c.accounts...)
	if overrides != nil {
		for sym, a := range overrides.bySymbol {
			merged.bySymbol[sym] = a
		}
		merged.accounts = append(merged.accounts, overrides.accounts...)
	}
	return merged
}

// AccountFor returns the investment account name for a symbol.
func (c *Chart) AccountFor(symbol string) (string, error) {
	a, ok := c.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return "", &common.UnmappedAccountError{Symbol: symbol}
	}
	return a.Name, nil
}

// Accounts lists every account in load order.
func (c *Chart) Accounts() []Account {
	return append([]Account(nil), c.accounts...)
}

// Len is the number of symbols the chart can map.
func (c *Chart) Len() int {
	return len(c.bySymbol)
}

// SymbolOf extracts the symbol from the last parenthesised token of an
// account name, e.g. "Water - CWCO (CWCO)".
func SymbolOf(name string) string {
	end := strings.LastIndex(name, ")")
	if end < 0 {
		return ""
	}
	start := strings.LastIndex(name[:end], "(")
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(name[start+1 : end])
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func fieldByName(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok {
		return ""
	}
	return field(row, i)
}

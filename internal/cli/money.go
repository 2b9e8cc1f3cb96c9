package cli

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// exactFormatter keeps the full money precision journal amounts carry.
var exactFormatter = money.NewFormatter(3, ".", ",", "$", "$1")

// FormatMoney renders an amount in whole cents, e.g. $1,234.57.
func FormatMoney(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

// FormatExact renders an amount at three decimals, e.g. $12.345.
func FormatExact(d decimal.Decimal) string {
	return exactFormatter.Format(d.Shift(3).Round(0).IntPart())
}

// FormatOptionalMoney renders a possibly absent amount, "-" when nil.
func FormatOptionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return FormatExact(*d)
}

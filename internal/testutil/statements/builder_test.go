package statements

import (
	"testing"
	"time"

	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder(t, "2025-02").
		WithDividend("JEPI", "12.345").
		WithInterest("SPAXX", "0.01").
		WithReinvestment("JEPI", "5").
		WithBuy(14, "XYLD", "10", "430").
		InBasket("10003").
		WithSell(20, "LAND", "5", "61.25").
		WithHolding("JEPI", "1000", "1010").
		WithNewHolding("XYLD", "430", "425").
		WithPriorHolding("LAND", "60").
		WithSummary("1000", "22.345", "12.355")

	stmt := b.Build()
	require.NoError(t, stmt.Validate())

	assert.Equal(t, "2025-02", stmt.Period.String())
	require.Len(t, stmt.Income, 3)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), stmt.Income[0].SettlementDate)
	assert.Equal(t, model.IncomeInterest, stmt.Income[1].Kind)
	assert.True(t, stmt.Income[2].Amount.Equal(decimal.RequireFromString("-5")))

	require.Len(t, stmt.Activity, 2)
	assert.Equal(t, model.ActionBought, stmt.Activity[0].Action)
	assert.Equal(t, "10003", stmt.Activity[0].BasketID)
	assert.True(t, stmt.Activity[0].Amount.IsNegative())
	assert.Equal(t, "", stmt.Activity[1].BasketID)
	assert.True(t, stmt.Activity[1].Amount.IsPositive())

	require.Len(t, stmt.Holdings, 2)
	assert.Equal(t, "10", stmt.Holdings[0].Change().String())
	assert.Equal(t, "-5", stmt.Holdings[1].Change().String())

	require.Len(t, stmt.PriorHoldings, 1)
	assert.Equal(t, "60", stmt.PriorHoldings[0].EndingValue.String())

	require.NotNil(t, stmt.Summary)
	ok, _ := stmt.Summary.Balanced(decimal.Zero)
	assert.True(t, ok)

	// later additions do not leak into an earlier build
	b.WithDividend("XYLD", "1")
	assert.Len(t, stmt.Income, 3)
	assert.Len(t, b.Build().Income, 4)
}

package scrape

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan = model.Period{Year: 2025, Month: time.January}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

const summaryCSV = `period_start,period_end,beginning_value_period,additions_period,subtractions_period,change_investment_value_period,ending_value_period,beginning_value_ytd,additions_ytd,subtractions_ytd,change_investment_value_ytd,ending_value_ytd,income_period,income_ytd
2025-01-01,2025-01-31,10000.00,0,0,-40.47,9959.53,10000.00,0,0,-40.47,9959.53,9.53,9.53
,,,,,,,,,,,,,
`

func TestLayoutPath(t *testing.T) {
	l := Layout{Root: "/data", Prefix: "MMW-"}
	assert.Equal(t, "/data/scrapes/summary/2025/MMW-2025-01-SUM.csv", l.Path(SectionSummary, jan))
	assert.Equal(t, "/data/scrapes/holdings/2025/MMW-2025-01-HLD.csv", l.Path(SectionHoldings, jan))
	assert.Equal(t, "ACT", SectionActivity.Code())
	assert.Equal(t, "INC", SectionIncome.Code())
}

func TestLoad(t *testing.T) {
	l := Layout{Root: t.TempDir(), Prefix: "MMW"}
	writeFile(t, l.Path(SectionSummary, jan), summaryCSV)
	writeFile(t, l.Path(SectionIncome, jan), `settlement_date,security_name,symbol,cusip,description,quantity,price,amount
2025-01-15,CADIZ INC,CDZI,127537207,Dividend Received,,,2.11
2025-01-31,GLADSTONE LAND,LAND,376549101,Reinvestment,0.25,10.40,-2.60
`)
	writeFile(t, l.Path(SectionHoldings, jan), `symbol,description,quantity,price,beginning_value,ending_value,cost_basis,unrealized_gain
JEPI,JPMORGAN EQUITY PREMIUM,50,57.14,unavailable,2857.00,2857.00,
`)

	stmt, err := l.Load(jan)
	require.NoError(t, err)
	require.NotNil(t, stmt.Summary)
	assert.True(t, dec("9.53").Equal(stmt.Summary.IncomePeriod))
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), stmt.Summary.PeriodEnd)

	require.Len(t, stmt.Income, 2)
	assert.Equal(t, model.IncomeDividend, stmt.Income[0].Kind)
	assert.Nil(t, stmt.Income[0].Quantity)
	assert.Equal(t, model.IncomeReinvestment, stmt.Income[1].Kind)
	assert.True(t, dec("-2.60").Equal(stmt.Income[1].Amount))

	assert.Empty(t, stmt.Activity)
	require.Len(t, stmt.Holdings, 1)
	assert.Nil(t, stmt.Holdings[0].BeginningValue)
	require.NotNil(t, stmt.Holdings[0].CostBasis)
	assert.Nil(t, stmt.Holdings[0].UnrealizedGain)
	require.NoError(t, stmt.Validate())
}

func TestLoadMissingSummary(t *testing.T) {
	l := Layout{Root: t.TempDir(), Prefix: "MMW"}
	_, err := l.Load(jan)
	require.ErrorIs(t, err, common.ErrMissingSummary)
}

func TestReadSummaryRowCount(t *testing.T) {
	header := strings.SplitN(summaryCSV, "\n", 2)[0] + "\n"
	_, err := ReadSummary(strings.NewReader(header))
	require.ErrorIs(t, err, common.ErrMissingSummary)

	row := strings.SplitN(summaryCSV, "\n", 3)[1] + "\n"
	_, err = ReadSummary(strings.NewReader(header + row + row))
	require.ErrorIs(t, err, common.ErrInvalidRecord)
	assert.Contains(t, err.Error(), "2 data rows")
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		read    func(string) error
		content string
		wantMsg string
	}{
		{
			name:    "empty file",
			read:    func(s string) error { _, err := ReadIncome(strings.NewReader(s)); return err },
			content: "",
			wantMsg: "empty file",
		},
		{
			name:    "missing column",
			read:    func(s string) error { _, err := ReadActivity(strings.NewReader(s)); return err },
			content: "settlement_date,symbol,quantity,price,amount\n",
			wantMsg: "missing column action",
		},
		{
			name:    "bad date",
			read:    func(s string) error { _, err := ReadIncome(strings.NewReader(s)); return err },
			content: "settlement_date,symbol,description,amount\n01/15/2025,CDZI,Dividend Received,2.11\n",
			wantMsg: "line 2 column settlement_date",
		},
		{
			name:    "unknown income description",
			read:    func(s string) error { _, err := ReadIncome(strings.NewReader(s)); return err },
			content: "settlement_date,symbol,description,amount\n2025-01-15,CDZI,Return of Capital,2.11\n",
			wantMsg: "column description",
		},
		{
			name:    "amount precision",
			read:    func(s string) error { _, err := ReadHoldings(strings.NewReader(s)); return err },
			content: "symbol,quantity,price,ending_value\nJEPI,1,1,1.2345\n",
			wantMsg: "column ending_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(tt.content)
			require.ErrorIs(t, err, common.ErrInvalidRecord)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	l := Layout{Root: t.TempDir(), Prefix: "MMW-"}
	begin := dec("1000")
	stmt := &model.Statement{
		Period: jan,
		Summary: &model.SummaryRecord{
			PeriodStart:                 jan.Start(),
			PeriodEnd:                   jan.End(),
			BeginningValuePeriod:        dec("10000"),
			ChangeInvestmentValuePeriod: dec("-40.47"),
			EndingValuePeriod:           dec("9959.53"),
			IncomePeriod:                dec("9.53"),
		},
		Activity: []model.ActivityRecord{{
			SettlementDate: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
			Action:         model.ActionBought,
			Symbol:         "JEPI",
			SecurityName:   "JPMORGAN EQUITY PREMIUM",
			Quantity:       dec("50"),
			Price:          dec("57.14"),
			Amount:         dec("-2857"),
			BasketID:       "10003",
		}},
		Holdings: []model.HoldingRecord{{
			Symbol:         "XYLD",
			Quantity:       dec("10"),
			Price:          dec("95"),
			BeginningValue: &begin,
			EndingValue:    dec("950"),
		}},
	}

	paths, err := l.Save(stmt)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	got, err := l.Load(jan)
	require.NoError(t, err)
	assert.Empty(t, got.Income)
	require.Len(t, got.Activity, 1)
	assert.Equal(t, "You Bought", got.Activity[0].ActionText)
	assert.Equal(t, model.ActionBought, got.Activity[0].Action)
	assert.Equal(t, "10003", got.Activity[0].BasketID)
	assert.True(t, dec("-2857").Equal(got.Activity[0].Amount))
	require.Len(t, got.Holdings, 1)
	require.NotNil(t, got.Holdings[0].BeginningValue)
	assert.True(t, begin.Equal(*got.Holdings[0].BeginningValue))
	assert.True(t, dec("-40.47").Equal(got.Summary.ChangeInvestmentValuePeriod))
}

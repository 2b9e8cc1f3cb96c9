package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHoldingRecord_Change(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		holding HoldingRecord
	}{
		{
			name:    "beginning value present",
			holding: HoldingRecord{Symbol: "CWCO", BeginningValue: DecimalPtr(dec("1000.00")), CostBasis: DecimalPtr(dec("900")), EndingValue: dec("950.25")},
			want:    "-49.75",
		},
		{
			name:    "new position falls back to cost basis",
			holding: HoldingRecord{Symbol: "LAND", CostBasis: DecimalPtr(dec("500")), EndingValue: dec("512.125")},
			want:    "12.125",
		},
		{
			name:    "no baseline",
			holding: HoldingRecord{Symbol: "GWRS", EndingValue: dec("10")},
			want:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.holding.Change().String())
		})
	}
}

func TestParseIncomeKind(t *testing.T) {
	tests := []struct {
		input   string
		want    IncomeKind
		wantErr bool
	}{
		{input: "Dividend Received", want: IncomeDividend},
		{input: "Reinvestment", want: IncomeReinvestment},
		{input: "Interest Earned", want: IncomeInterest},
		{input: "Long-Term Cap Gain", want: IncomeDividend},
		{input: "Transfer", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseIncomeKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction(t *testing.T) {
	assert.Equal(t, ActionBought, ParseAction("You Bought"))
	assert.Equal(t, ActionBought, ParseAction("BUYSTOCK"))
	assert.Equal(t, ActionSold, ParseAction("You Sold"))
	assert.Equal(t, ActionSold, ParseAction("sell"))
	assert.Equal(t, ActionOther, ParseAction("Journaled Spp Purchase Credit"))
}

func TestStatement_Validate(t *testing.T) {
	date := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	good := Statement{
		Period: Period{Year: 2025, Month: time.January},
		Summary: &SummaryRecord{
			PeriodStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   date,
		},
		Income: []IncomeRecord{{SettlementDate: date, Symbol: "CWCO", Kind: IncomeDividend, Amount: dec("2.11")}},
		Activity: []ActivityRecord{
			{SettlementDate: date, Symbol: "CWCO", Action: ActionBought, Amount: dec("-100.00")},
		},
		Holdings: []HoldingRecord{{Symbol: "CWCO", EndingValue: dec("100")}},
	}
	require.NoError(t, good.Validate())

	missingSymbol := good
	missingSymbol.Income = []IncomeRecord{{SettlementDate: date, Kind: IncomeDividend, Amount: dec("1")}}
	err := missingSymbol.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "income row 1")

	backwards := good
	backwards.Summary = &SummaryRecord{PeriodStart: date, PeriodEnd: date.AddDate(0, 0, -5)}
	assert.Error(t, backwards.Validate())
}

func TestSummaryRecord_Balanced(t *testing.T) {
	s := SummaryRecord{
		BeginningValuePeriod:        dec("10000.00"),
		AdditionsPeriod:             dec("500.00"),
		SubtractionsPeriod:          dec("-200.00"),
		ChangeInvestmentValuePeriod: dec("-48.54"),
		EndingValuePeriod:           dec("10251.46"),
		IncomePeriod:                dec("139.31"),
	}
	ok, delta := s.Balanced(dec("0.01"))
	assert.True(t, ok)
	assert.True(t, delta.IsZero())
	assert.Equal(t, "-187.85", s.UnrealizedPeriod().String())

	s.EndingValuePeriod = dec("10300")
	ok, delta = s.Balanced(dec("0.01"))
	assert.False(t, ok)
	assert.Equal(t, "-48.54", delta.String())
}

func TestJournalEntry_Totals(t *testing.T) {
	entry := JournalEntry{
		Kind:         KindDividend,
		NumberPrefix: "MMW-",
		NumberSuffix: 10001,
		Lines: []JournalLine{
			DebitLine("Cash", "Dividend - CWCO", dec("2.11")),
			DebitLine("Cash", "Dividend - LAND", dec("2.60")),
			CreditLine("Dividend Income", "Income - CWCO, LAND", dec("4.71")),
		},
	}
	debits, credits := entry.Totals()
	assert.Equal(t, "4.71", debits.String())
	assert.Equal(t, "4.71", credits.String())
	assert.True(t, entry.Balanced())
	assert.Equal(t, "MMW-10001", entry.JournalNumber())

	entry.Lines[2] = CreditLine("Dividend Income", "Income - CWCO, LAND", dec("4.70"))
	assert.False(t, entry.Balanced())
}

func TestFlattenEntries(t *testing.T) {
	entries := []JournalEntry{
		{Kind: KindPurchase, ReferenceNumber: "PUR-1", NumberPrefix: "X-", NumberSuffix: 20001, Lines: []JournalLine{
			DebitLine("A", "a", dec("1")), CreditLine("Cash", "c", dec("1")),
		}},
		{Kind: KindSale, ReferenceNumber: "SAL-1", NumberPrefix: "X-", NumberSuffix: 30001, Lines: []JournalLine{
			DebitLine("Cash", "c", dec("2")), CreditLine("A", "a", dec("2")),
		}},
	}
	lines := FlattenEntries("run-1", entries)
	require.Len(t, lines, 4)
	assert.Equal(t, 3, lines[3].Position)
	assert.Equal(t, "X-30001", lines[3].JournalNumber)
	assert.Equal(t, KindSale, lines[2].Kind)
	assert.Equal(t, "run-1", lines[0].RunID)
}

func TestFillBeginningValues(t *testing.T) {
	holdings := []HoldingRecord{
		{Symbol: "JEPI", EndingValue: dec("2805")},
		{Symbol: "xyld", EndingValue: dec("3645")},
	}
	FillBeginningValues(holdings, []HoldingRecord{{Symbol: "XYLD", EndingValue: dec("4000")}})

	assert.Nil(t, holdings[0].BeginningValue)
	require.NotNil(t, holdings[1].BeginningValue)
	assert.Equal(t, "-355", holdings[1].Change().String())
}

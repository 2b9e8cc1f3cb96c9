package model

import (
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		want    time.Time
		name    string
		input   string
		wantErr bool
	}{
		{name: "iso date", input: "2025-01-31", want: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding space", input: " 2025-02-07 ", want: time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC)},
		{name: "us format", input: "01/31/2025", wantErr: true},
		{name: "short month", input: "2025-1-31", wantErr: true},
		{name: "impossible day", input: "2025-02-30", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrInvalidRecord))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "2.11", want: "2.11"},
		{name: "three decimals", input: "139.310", want: "139.31"},
		{name: "negative", input: "-48.540", want: "-48.54"},
		{name: "thousands and dollar", input: "$19,999.91", want: "19999.91"},
		{name: "trailing zeros past precision", input: "1.23400", want: "1.234"},
		{name: "too precise", input: "1.2345", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "blank", input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseOptionalAmount(t *testing.T) {
	got, err := ParseOptionalAmount("unavailable")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseOptionalAmount("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseOptionalAmount("10.5")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "10.5", got.String())
}

func TestSumAndFormat(t *testing.T) {
	total := Sum(
		decimal.RequireFromString("2.11"),
		decimal.RequireFromString("4.62"),
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("2.60"),
		decimal.RequireFromString("0.19"),
	)
	assert.Equal(t, "9.53", FormatAmount(total))
	assert.Equal(t, "0.001", FormatAmount(decimal.RequireFromString("0.0005")))
}

func TestPeriod(t *testing.T) {
	p, err := ParsePeriod("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", p.String())
	assert.Equal(t, "2024-02-29", FormatDate(p.End()))
	assert.Equal(t, "2024-03", p.Next().String())

	dec := Period{Year: 2024, Month: time.December}
	assert.Equal(t, "2025-01", dec.Next().String())
	assert.Equal(t, "2024-11", dec.Prev().String())
	assert.Equal(t, "2023-12", Period{Year: 2024, Month: time.January}.Prev().String())

	_, err = ParsePeriod("2024-13")
	assert.Error(t, err)

	periods := PeriodRange(Period{2024, time.November}, Period{2025, time.February})
	require.Len(t, periods, 4)
	assert.Equal(t, "2025-02", periods[3].String())
	assert.Empty(t, PeriodRange(Period{2025, time.March}, Period{2025, time.January}))
}

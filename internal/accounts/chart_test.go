package accounts

import (
	"errors"
	"strings"
	"testing"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleChart = `Account Name,Account Code,Account Type
Cash - Fidelity Cash Management Account,1010,Cash
Water - Consolidated Water (CWCO),1501,Other Current Asset
"Water - Gladstone Land, Farmland (LAND)",1502,Other Current Asset
Buy Write - JPMorgan Equity Premium (JEPI),1601,Other Current Asset
,,
Dividend Income,4010,Income
`

func TestSymbolOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "Water - CWCO (CWCO)", want: "CWCO"},
		{name: "Holding (Class B) (BRKB)", want: "BRKB"},
		{name: "Dividend Income", want: ""},
		{name: "Broken )( name", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SymbolOf(tt.name))
		})
	}
}

func TestLoadCSV(t *testing.T) {
	chart, err := LoadCSV(strings.NewReader(sampleChart))
	require.NoError(t, err)

	assert.Equal(t, 3, chart.Len())
	assert.Len(t, chart.Accounts(), 5)

	name, err := chart.AccountFor("land")
	require.NoError(t, err)
	assert.Equal(t, "Water - Gladstone Land, Farmland (LAND)", name)

	_, err = chart.AccountFor("AAPL")
	require.Error(t, err)
	var unmapped *common.UnmappedAccountError
	require.ErrorAs(t, err, &unmapped)
	assert.Equal(t, "AAPL", unmapped.Symbol)
	assert.True(t, errors.Is(err, common.ErrUnmappedAccount))
}

func TestLoadCSV_MissingColumn(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("Name,Code\nCash,1\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}

func TestMerge(t *testing.T) {
	base, err := LoadCSV(strings.NewReader(sampleChart))
	require.NoError(t, err)
	overrides, err := FromMap(map[string]string{"CWCO": "Water - Override", "XYLD": "Buy Write - XYLD"})
	require.NoError(t, err)

	merged := base.Merge(overrides)

	name, err := merged.AccountFor("CWCO")
	require.NoError(t, err)
	assert.Equal(t, "Water - Override", name)

	name, err = merged.AccountFor("XYLD")
	require.NoError(t, err)
	assert.Equal(t, "Buy Write - XYLD", name)

	// base is untouched
	name, err = base.AccountFor("CWCO")
	require.NoError(t, err)
	assert.Equal(t, "Water - Consolidated Water (CWCO)", name)
}

func TestNewChart_Conflict(t *testing.T) {
	_, err := NewChart([]Account{{Name: "A (CWCO)"}, {Name: "B (CWCO)"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}

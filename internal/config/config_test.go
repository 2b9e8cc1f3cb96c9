package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/engine"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
paths:
  root: /data/fidelity
database:
  path: /data/ledger.db
ledger:
  prefix: MMW-
  policy: strict
  tolerance: 0.05
  include_reinvestments: true
  suffix_bases:
    div: 50001
  unbasketed_allowlist: [LAND]
  accounts:
    JEPI: "Investment - JEPI (JEPI)"
    XYLD: "Investment - XYLD (XYLD)"
  baskets:
    - id: 10001
      name: Income ETFs
      fmv_account: "FMV - Income ETFs"
      unrealized_account: "Unrealized - Income ETFs"
      symbols: [jepi, XYLD]
`

func loadYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return v
}

func TestLoad(t *testing.T) {
	cfg, err := Load(loadYAML(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/data/fidelity", cfg.Paths.Root)
	assert.Equal(t, "journals", cfg.Paths.Out)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.Len(t, cfg.Ledger.Baskets, 1)
	assert.Equal(t, "10001", cfg.Ledger.Baskets[0].ID)
	assert.Equal(t, []string{"FDRXX", "SPAXX", "FCASH"}, cfg.Ledger.MoneyMarket)

	ecfg, err := cfg.Ledger.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.PolicyStrict, ecfg.Policy)
	assert.True(t, decimal.RequireFromString("0.05").Equal(ecfg.Tolerance))
	assert.Equal(t, 50001, ecfg.SuffixBases[model.KindDividend])
	assert.True(t, ecfg.IncludeReinvestments)
	require.NotNil(t, ecfg.NettedPattern)
	assert.True(t, ecfg.NettedPattern.MatchString("Core Account sweep"))

	id, ok := ecfg.Baskets.ResolveBySymbol("JEPI")
	assert.True(t, ok)
	assert.Equal(t, "10001", id)
	_, ok = ecfg.Baskets.ResolveBySymbol("LAND")
	assert.False(t, ok)

	account, err := ecfg.Chart.AccountFor("xyld")
	require.NoError(t, err)
	assert.Equal(t, "Investment - XYLD (XYLD)", account)

	eng, err := engine.New(ecfg)
	require.NoError(t, err)
	assert.Equal(t, "MMW-", eng.Prefix())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		doc     string
	}{
		{
			name:    "no baskets",
			doc:     "ledger:\n  accounts:\n    JEPI: Investment - JEPI (JEPI)\n",
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "no accounts",
			doc:     "ledger:\n  baskets:\n    - id: 1\n      name: One\n",
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "bad policy",
			doc:     strings.Replace(sampleYAML, "policy: strict", "policy: yolo", 1),
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "bad log level",
			doc:     sampleYAML + "logging:\n  level: loud\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "bad log format",
			doc:     sampleYAML + "logging:\n  format: xml\n",
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(loadYAML(t, tt.doc))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngineConfigErrors(t *testing.T) {
	valid := func() Ledger {
		return Ledger{
			Accounts: map[string]string{"jepi": "Investment - JEPI (JEPI)"},
			Baskets:  []Basket{{ID: "10001", Name: "Income", Symbols: []string{"JEPI"}}},
		}
	}

	tests := []struct {
		mutate func(l *Ledger)
		name   string
	}{
		{name: "non-numeric basket id", mutate: func(l *Ledger) { l.Baskets[0].ID = "abc" }},
		{name: "symbol in two baskets", mutate: func(l *Ledger) {
			l.Baskets = append(l.Baskets, Basket{ID: "10002", Name: "Dup", Symbols: []string{"jepi"}})
		}},
		{name: "bad tolerance", mutate: func(l *Ledger) { l.Tolerance = "abc" }},
		{name: "negative tolerance", mutate: func(l *Ledger) { l.Tolerance = "-0.01" }},
		{name: "bad netted pattern", mutate: func(l *Ledger) { l.NettedPattern = "(" }},
		{name: "unknown suffix kind", mutate: func(l *Ledger) { l.SuffixBases = map[string]int{"fee": 1} }},
		{name: "bad unbasketed policy", mutate: func(l *Ledger) { l.Unbasketed = "drop" }},
		{name: "missing chart file", mutate: func(l *Ledger) { l.ChartOfAccounts = "/nonexistent/chart.csv" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid()
			tt.mutate(&l)
			_, err := l.EngineConfig()
			require.Error(t, err)
		})
	}

	l := valid()
	ecfg, err := l.EngineConfig()
	require.NoError(t, err)
	assert.Nil(t, ecfg.NettedPattern)
}

func TestEngineConfigChartFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.csv")
	chart := "Account Name,Account Code,Account Type\n" +
		"Investment - JEPI (JEPI),1510,Stock\n" +
		"Investment - XYLD (XYLD),1520,Stock\n"
	require.NoError(t, os.WriteFile(path, []byte(chart), 0o600))

	l := Ledger{
		ChartOfAccounts: path,
		Accounts:        map[string]string{"xyld": "Investment - XYLD Override (XYLD)"},
		Baskets:         []Basket{{ID: "10001", Name: "Income", Symbols: []string{"JEPI", "XYLD"}}},
	}
	ecfg, err := l.EngineConfig()
	require.NoError(t, err)

	account, err := ecfg.Chart.AccountFor("JEPI")
	require.NoError(t, err)
	assert.Equal(t, "Investment - JEPI (JEPI)", account)

	// config entries win over the export
	account, err = ecfg.Chart.AccountFor("XYLD")
	require.NoError(t, err)
	assert.Equal(t, "Investment - XYLD Override (XYLD)", account)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("LEDGER_TEST_DIR", "/srv/ledger")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "ledger.db"), ExpandPath("~/ledger.db"))
	assert.Equal(t, "/srv/ledger/out", ExpandPath("$LEDGER_TEST_DIR/out"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}

func TestLoadSheetsConfig(t *testing.T) {
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID",
		"GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
		"GOOGLE_SHEETS_SPREADSHEET_ID",
		"GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}

	v := loadYAML(t, "sheets:\n  service_account_path: /keys/sa.json\n  spreadsheet_id: abc\n  batch_size: 50\n")
	cfg, err := LoadSheetsConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)
	assert.Equal(t, "abc", cfg.SpreadsheetID)
	assert.Equal(t, 50, cfg.BatchSize)

	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "id")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "token")
	cfg, err = LoadSheetsConfig(loadYAML(t, "{}"))
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)

	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "")
	_, err = LoadSheetsConfig(loadYAML(t, "{}"))
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestLoadPlaidConfig(t *testing.T) {
	for _, key := range []string{"PLAID_CLIENT_ID", "PLAID_SECRET", "PLAID_ENV", "PLAID_ACCESS_TOKEN"} {
		t.Setenv(key, "")
	}

	_, err := LoadPlaidConfig(loadYAML(t, "{}"))
	require.ErrorIs(t, err, common.ErrMissingConfig)

	t.Setenv("PLAID_SECRET", "env-secret")
	t.Setenv("PLAID_ACCESS_TOKEN", "access")
	cfg, err := LoadPlaidConfig(loadYAML(t, "plaid:\n  client_id: cid\n"))
	require.NoError(t, err)
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.Secret)
	assert.Equal(t, "sandbox", cfg.Environment)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/engine"
	"github.com/Veraticus/statement-ledger/internal/export"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/scrape"
	"github.com/Veraticus/statement-ledger/internal/sheets"
	"github.com/Veraticus/statement-ledger/internal/testutil"
	"github.com/Veraticus/statement-ledger/internal/testutil/statements"
	"github.com/Veraticus/statement-ledger/internal/tui"
	"github.com/Veraticus/statement-ledger/internal/tui/themes"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type workspace struct {
	root   string
	out    string
	db     string
	config string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		root:   filepath.Join(dir, "data"),
		out:    filepath.Join(dir, "journals"),
		db:     filepath.Join(dir, "ledger.db"),
		config: filepath.Join(dir, "config.yaml"),
	}

	doc := `paths:
  root: ` + ws.root + `
  out: ` + ws.out + `
database:
  path: ` + ws.db + `
logging:
  level: error
ledger:
  prefix: MMW-
  accounts:
    JEPI: "Buy Write - JPMorgan Equity Premium (JEPI)"
  baskets:
    - id: 10003
      name: Buy Write ETFs
      fmv_account: "FMV - Buy Write ETFs"
      unrealized_account: "Unrealized Gain - Buy Write ETFs"
      symbols: [JEPI]
`
	require.NoError(t, os.WriteFile(ws.config, []byte(doc), 0o600))

	stmt := statements.NewBuilder(t, "2025-01").
		WithDividend("JEPI", "12.345").
		WithHolding("JEPI", "1000", "1010").
		WithSummary("1000", "22.345", "12.345").
		Build()
	_, err := scrape.Layout{Root: ws.root, Prefix: "MMW-"}.Save(stmt)
	require.NoError(t, err)

	return ws
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDeriveSaveAndHistory(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(t, "--config", ws.config, "derive", "--period", "2025-01", "--save", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "Period 2025-01")
	assert.Contains(t, out, "Reconciled within")
	assert.Contains(t, out, "Saved run")

	data, err := os.ReadFile(filepath.Join(ws.out, "MMW-2025-01-DIV.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Journal Date,Reference Number,"))
	assert.Contains(t, string(data), "12.345")

	out, err = execute(t, "--config", ws.config, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-01")
	assert.Contains(t, out, "emit-valid")

	out, err = execute(t, "--config", ws.config, "history", "--period", "2024-12")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")

	_, err = execute(t, "--config", ws.config, "history", "show", "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestHistoryShow(t *testing.T) {
	ws := newWorkspace(t)
	db := testutil.SetupTestDBAt(t, ws.db)

	run, lines := testutil.SampleRun("2024-12", "40.47")
	run.Failures = []string{"unknown basket: basket 99"}
	run.FailedGroups = 1
	id := db.SeedRun(run, lines)

	out, err := execute(t, "--config", ws.config, "history", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "2024-12")
	assert.Contains(t, out, "$40.47")
	assert.Contains(t, out, "unknown basket: basket 99")

	out, err = execute(t, "--config", ws.config, "history", "--period", "2024-12")
	require.NoError(t, err)
	assert.Contains(t, out, id[:8])
}

func TestDeriveOutFlag(t *testing.T) {
	ws := newWorkspace(t)
	dir := t.TempDir()

	_, err := execute(t, "--config", ws.config, "derive", "-p", "2025-01", "-o", dir, "-q")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "MMW-2025-01-DIV.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "MMW-2025-01-SAL.csv"))
}

func TestDeriveStrictRemovesStaleFiles(t *testing.T) {
	ws := newWorkspace(t)

	_, err := execute(t, "--config", ws.config, "derive", "-p", "2025-01", "-q")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(ws.out, "MMW-2025-01-DIV.csv"))

	// XYLD has no account, so its purchase group fails and strict rejects the period
	stmt := statements.NewBuilder(t, "2025-01").
		WithDividend("JEPI", "12.345").
		WithBuy(15, "XYLD", "10", "430").
		WithHolding("JEPI", "1000", "1010").
		WithSummary("1000", "22.345", "12.345").
		Build()
	_, err = scrape.Layout{Root: ws.root, Prefix: "MMW-"}.Save(stmt)
	require.NoError(t, err)

	out, err := execute(t, "--config", ws.config, "derive", "-p", "2025-01", "-q", "--strict")
	require.ErrorIs(t, err, common.ErrRunRejected)
	assert.Contains(t, out, "Period 2025-01")
	assert.NoFileExists(t, filepath.Join(ws.out, "MMW-2025-01-DIV.csv"))
	assert.NoFileExists(t, filepath.Join(ws.out, "MMW-2025-01-UNR.csv"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: 0},
		{name: "failure", err: common.ErrRunRejected, want: 1},
		{name: "interrupted", err: fmt.Errorf("%w: derive stopped", common.ErrInterrupted), want: 130},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestDeriveErrors(t *testing.T) {
	ws := newWorkspace(t)

	_, err := execute(t, "--config", ws.config, "derive", "--period", "2025-02")
	require.ErrorIs(t, err, common.ErrMissingSummary)

	_, err = execute(t, "--config", ws.config, "derive", "--period", "2025-13")
	require.ErrorIs(t, err, common.ErrInvalidRecord)

	_, err = execute(t, "--config", ws.config, "derive")
	require.Error(t, err)

	_, err = execute(t, "--config", ws.config, "derive", "--period", "2025-01", "--ofx", "a.qfx", "--plaid")
	require.Error(t, err)
}

func TestReconcile(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(t, "--config", ws.config, "reconcile", "--period", "2025-01", "--fail-on-mismatch")
	require.NoError(t, err)
	assert.Contains(t, out, "Reconciliation 2025-01")
	assert.Contains(t, out, "$22.345")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ledger dev\n", out)
}

func TestMissingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  root: "+dir+"\n"), 0o600))

	_, err := execute(t, "--config", path, "derive", "--period", "2025-01")
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestPeriodFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   periodFlags
		want    []string
		wantErr bool
	}{
		{name: "single", flags: periodFlags{from: "2025-01"}, want: []string{"2025-01"}},
		{name: "range across a year", flags: periodFlags{from: "2024-11", to: "2025-02"}, want: []string{"2024-11", "2024-12", "2025-01", "2025-02"}},
		{name: "reversed", flags: periodFlags{from: "2025-03", to: "2025-01"}, wantErr: true},
		{name: "bad from", flags: periodFlags{from: "Jan 2025"}, wantErr: true},
		{name: "bad to", flags: periodFlags{from: "2025-01", to: "2025-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := tt.flags.periods()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			got := make([]string, len(periods))
			for i, p := range periods {
				got[i] = p.String()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriorHoldings(t *testing.T) {
	ws := newWorkspace(t)
	layout := scrape.Layout{Root: ws.root, Prefix: "MMW-"}

	prior, err := priorHoldings(layout, model.Period{Year: 2025, Month: time.February})
	require.NoError(t, err)
	require.Len(t, prior, 1)
	assert.Equal(t, "1010", prior[0].EndingValue.String())

	prior, err = priorHoldings(layout, model.Period{Year: 2025, Month: time.January})
	require.NoError(t, err)
	assert.Nil(t, prior)
}

func TestJournalFilesAndPublish(t *testing.T) {
	entry := func(kind model.EntryKind, suffix int) model.JournalEntry {
		return model.JournalEntry{
			JournalDate:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			Kind:         kind,
			NumberPrefix: "MMW-",
			NumberSuffix: suffix,
			Lines: []model.JournalLine{
				model.DebitLine("Brokerage Cash", "JEPI", dec("1")),
				model.CreditLine("Dividend Income", "JEPI", dec("1")),
			},
		}
	}
	jan := model.Period{Year: 2025, Month: time.January}
	feb := model.Period{Year: 2025, Month: time.February}
	results := []engine.PeriodResult{
		{Period: jan, Result: &engine.Result{Period: jan, Entries: []model.JournalEntry{entry(model.KindDividend, 10001), entry(model.KindSale, 30001)}}},
		{Period: feb, Result: &engine.Result{Period: feb}, Err: common.ErrRunRejected},
	}

	files := journalFiles("MMW-", results)
	require.Len(t, files, 2)
	assert.Equal(t, "MMW-2025-01-DIV.csv", files[0].name)
	assert.Equal(t, "MMW-2025-01-SAL.csv", files[1].name)
	assert.Len(t, files[0].rows, 2)

	pub := sheets.NewMockPublisher()
	var out bytes.Buffer
	require.NoError(t, publishFiles(context.Background(), pub, files, &out))
	calls := pub.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, export.Header, calls[0].Header)
	assert.Contains(t, out.String(), "Published MMW-2025-01-SAL.csv")

	pub.PublishFunc = func(context.Context, string, []string, [][]string) error {
		return errors.New("quota exceeded")
	}
	err := publishFiles(context.Background(), pub, files, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MMW-2025-01-DIV.csv")
}

func TestReviewOptions(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		height   int
		noHelp   bool
		want     tui.Config
		themeIn  string
		themeOut string
	}{
		{
			name:     "defaults kept",
			themeIn:  "default",
			themeOut: themes.Default.Name,
			want:     tui.Config{Title: "📒 Periods 2025-01", ShowHelp: true},
		},
		{
			name:     "size and hidden help",
			width:    100,
			height:   40,
			noHelp:   true,
			themeIn:  "ledger",
			themeOut: themes.GetTheme("ledger").Name,
			want:     tui.Config{Title: "📒 Periods 2025-01", Width: 100, Height: 40},
		},
		{
			name:     "half a size is ignored",
			width:    100,
			themeIn:  "default",
			themeOut: themes.Default.Name,
			want:     tui.Config{Title: "📒 Periods 2025-01", ShowHelp: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tui.Config{ShowHelp: true}
			for _, opt := range reviewOptions("Periods 2025-01", tt.themeIn, tt.width, tt.height, tt.noHelp) {
				opt(&got)
			}
			assert.Equal(t, tt.themeOut, got.Theme.Name)
			got.Theme = themes.Theme{}
			assert.Equal(t, tt.want, got)
		})
	}
}

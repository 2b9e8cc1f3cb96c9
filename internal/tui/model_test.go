package tui

import (
	"testing"
	"time"

	"github.com/Veraticus/statement-ledger/internal/model"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amountPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func reviewLines() []model.RunLine {
	date := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	return []model.RunLine{
		{Kind: model.KindDividend, JournalNumber: "MMW-10001", JournalDate: date, Account: "Brokerage Cash", Description: "JEPI", Debit: amountPtr("12.345")},
		{Kind: model.KindDividend, JournalNumber: "MMW-10001", JournalDate: date, Account: "Dividend Income", Description: "JEPI", Credit: amountPtr("12.345")},
		{Kind: model.KindDividend, JournalNumber: "MMW-10002", JournalDate: date, Account: "Brokerage Cash", Description: "XYLD", Debit: amountPtr("9.53")},
		{Kind: model.KindDividend, JournalNumber: "MMW-10002", JournalDate: date, Account: "Dividend Income", Description: "XYLD", Credit: amountPtr("9.53")},
		{Kind: model.KindSale, JournalNumber: "MMW-30001", JournalDate: date, Account: "Investment - JEPI (JEPI)", Debit: amountPtr("100")},
		{Kind: model.KindSale, JournalNumber: "MMW-30001", JournalDate: date, Account: "Brokerage Cash", Credit: amountPtr("99")},
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(Model)
	require.True(t, ok)
	return updated, cmd
}

func TestNewModel_Tabs(t *testing.T) {
	m := newModel(defaultConfig(), reviewLines(), []string{"PUR 2025-01-15 10001: no account for LAND"})

	require.Len(t, m.tabs, 3)
	assert.Equal(t, "Dividends", m.tabs[0].title)
	assert.Equal(t, "Sales", m.tabs[1].title)
	assert.True(t, m.tabs[2].failures)
	assert.Len(t, m.table.Rows(), 4)
	assert.Equal(t, "MMW-10001", m.table.SelectedRow()[0])
	assert.Equal(t, "12.345", m.table.SelectedRow()[5])
}

func TestModel_TabNavigation(t *testing.T) {
	m := newModel(defaultConfig(), reviewLines(), []string{"failure one", "failure two"})

	m, _ = update(t, m, keyPress("tab"))
	assert.Equal(t, 1, m.active)
	assert.Len(t, m.table.Rows(), 2)
	assert.Equal(t, "Investment - JEPI (JEPI)", m.table.SelectedRow()[3])

	m, _ = update(t, m, keyPress("tab"))
	assert.Equal(t, 2, m.active)
	require.Len(t, m.table.Columns(), 1)
	assert.Equal(t, "failure one", m.table.SelectedRow()[0])

	// wraps around in both directions
	m, _ = update(t, m, keyPress("tab"))
	assert.Equal(t, 0, m.active)
	m, _ = update(t, m, keyPress("shift+tab"))
	assert.Equal(t, 2, m.active)
}

func TestModel_RowNavigation(t *testing.T) {
	m := newModel(defaultConfig(), reviewLines(), nil)

	m, _ = update(t, m, keyPress("down"))
	assert.Equal(t, 1, m.table.Cursor())
	assert.Equal(t, "Dividend Income", m.table.SelectedRow()[3])

	// switching tabs resets the cursor
	m, _ = update(t, m, keyPress("tab"))
	assert.Equal(t, 0, m.table.Cursor())
}

func TestModel_Totals(t *testing.T) {
	m := newModel(defaultConfig(), reviewLines(), nil)

	debits, credits := m.totals()
	assert.Equal(t, "21.875", debits.String())
	assert.True(t, debits.Equal(credits))
	assert.Contains(t, m.String(), "2 entries  debits 21.875  credits 21.875")

	m, _ = update(t, m, keyPress("tab"))
	assert.Contains(t, m.String(), "out of balance")
}

func TestModel_Quit(t *testing.T) {
	m := newModel(defaultConfig(), reviewLines(), nil)

	m, cmd := update(t, m, keyPress("q"))
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModel_Resize(t *testing.T) {
	m := newModel(defaultConfig(), reviewLines(), []string{"boom"})

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 100, m.table.Width())
	assert.Equal(t, 20-chrome, m.tableHeight())
	before := m.table.Height()

	m, _ = update(t, m, keyPress("?"))
	assert.True(t, m.help.ShowAll)
	assert.Equal(t, 20-chrome-3, m.tableHeight())
	assert.Equal(t, before-3, m.table.Height())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 5})
	assert.Equal(t, 3, m.tableHeight())
}

func TestModel_Empty(t *testing.T) {
	m := newModel(defaultConfig(), nil, nil)
	assert.Empty(t, m.tabs)
	assert.Contains(t, m.String(), "No journal lines to review.")

	m, _ = update(t, m, keyPress("tab"))
	assert.Equal(t, 0, m.active)
}

func TestOptions(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []Option{WithSize(80, 24), WithTitle("Run abc"), WithHelp(false)} {
		opt(&cfg)
	}
	assert.Equal(t, 80, cfg.Width)
	assert.Equal(t, 24, cfg.Height)
	assert.Equal(t, "Run abc", cfg.Title)
	assert.False(t, cfg.ShowHelp)

	m := newModel(cfg, reviewLines(), nil)
	assert.Contains(t, m.String(), "Run abc")
	assert.NotContains(t, m.String(), "quit")
}

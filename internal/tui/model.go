// Package tui implements the interactive journal review screen.
package tui

import (
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

// chrome is the number of lines around the table: title, tabs, the
// table header, the totals line and help.
const chrome = 7

// tab is one page of the review: the lines of one file, or the failures.
type tab struct {
	title    string
	kind     model.EntryKind
	failures bool
}

// Model holds the review screen state.
type Model struct {
	theme    themes.Theme
	config   Config
	keymap   KeyMap
	help     help.Model
	table    table.Model
	lines    []model.RunLine
	failures []string
	tabs     []tab
	active   int
	width    int
	height   int
	quitting bool
}

// newModel builds one tab per entry kind present in lines, plus a failures
// tab when there are any.
func newModel(cfg Config, lines []model.RunLine, failures []string) Model {
	m := Model{
		theme:    cfg.Theme,
		config:   cfg,
		keymap:   DefaultKeyMap(),
		help:     help.New(),
		lines:    lines,
		failures: failures,
		width:    cfg.Width,
		height:   cfg.Height,
	}

	for _, kind := range model.EntryKinds {
		for _, l := range lines {
			if l.Kind == kind {
				m.tabs = append(m.tabs, tab{title: kind.Label(), kind: kind})
				break
			}
		}
	}
	if len(failures) > 0 {
		m.tabs = append(m.tabs, tab{title: "Failures", failures: true})
	}

	styles := table.DefaultStyles()
	styles.Header = m.theme.Header
	styles.Selected = m.theme.Selected

	m.table = table.New(
		table.WithFocused(true),
		table.WithStyles(styles),
		table.WithKeyMap(m.keymap.tableKeyMap()),
	)
	m.showTab(0)
	m.resize()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.NextTab):
			m.showTab(m.active + 1)
			return m, nil
		case key.Matches(msg, m.keymap.PrevTab):
			m.showTab(m.active - 1)
			return m, nil
		case key.Matches(msg, m.keymap.ToggleHelp):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// showTab switches to tab i, wrapping around at either end.
func (m *Model) showTab(i int) {
	if len(m.tabs) == 0 {
		return
	}
	m.active = (i%len(m.tabs) + len(m.tabs)) % len(m.tabs)

	// rows must never be wider than the columns
	m.table.SetRows(nil)
	m.table.SetColumns(m.columns())
	m.table.SetRows(m.rows())
	m.table.GotoTop()
}

// tableHeight is the space left for the table, header included.
func (m *Model) tableHeight() int {
	height := m.height - chrome
	if m.help.ShowAll {
		height -= 3
	}
	if height < 3 {
		height = 3
	}
	return height
}

func (m *Model) resize() {
	m.help.Width = m.width
	m.table.SetWidth(m.width)
	m.table.SetHeight(m.tableHeight())
	if len(m.tabs) > 0 && m.tabs[m.active].failures {
		m.table.SetColumns(m.columns())
	}
}

func (m *Model) columns() []table.Column {
	if m.tabs[m.active].failures {
		width := m.width - 4
		if width < 20 {
			width = 20
		}
		return []table.Column{{Title: "Failure", Width: width}}
	}
	return []table.Column{
		{Title: "Journal #", Width: 12},
		{Title: "Date", Width: 10},
		{Title: "Reference", Width: 10},
		{Title: "Account", Width: 30},
		{Title: "Description", Width: 20},
		{Title: "Debit", Width: 12},
		{Title: "Credit", Width: 12},
	}
}

func (m *Model) rows() []table.Row {
	t := m.tabs[m.active]
	if t.failures {
		rows := make([]table.Row, len(m.failures))
		for i, f := range m.failures {
			rows[i] = table.Row{f}
		}
		return rows
	}

	var rows []table.Row
	for _, l := range m.lines {
		if l.Kind != t.kind {
			continue
		}
		rows = append(rows, table.Row{
			l.JournalNumber,
			model.FormatDate(l.JournalDate),
			l.ReferenceNumber,
			l.Account,
			l.Description,
			amount(l.Debit),
			amount(l.Credit),
		})
	}
	return rows
}

// totals sums the debit and credit columns of the active tab.
func (m *Model) totals() (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	if len(m.tabs) == 0 || m.tabs[m.active].failures {
		return debits, credits
	}
	kind := m.tabs[m.active].kind
	for _, l := range m.lines {
		if l.Kind != kind {
			continue
		}
		if l.Debit != nil {
			debits = debits.Add(*l.Debit)
		}
		if l.Credit != nil {
			credits = credits.Add(*l.Credit)
		}
	}
	return model.Round(debits), model.Round(credits)
}

func amount(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return model.FormatAmount(*d)
}

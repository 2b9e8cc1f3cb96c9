package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.theme.Title.Render(m.config.Title)}
	if len(m.tabs) == 0 {
		sections = append(sections, "", m.theme.Subtitle.Render("No journal lines to review."))
	} else {
		sections = append(sections,
			m.renderTabs(),
			m.table.View(),
			m.renderTotals(),
		)
	}
	if m.config.ShowHelp {
		sections = append(sections, m.help.View(m.keymap))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		label := t.title
		if t.failures {
			label = fmt.Sprintf("%s (%d)", label, len(m.failures))
		}
		if i == m.active {
			tabs[i] = m.theme.TabActive.Render(label)
		} else {
			tabs[i] = m.theme.TabInactive.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderTotals shows the column totals, or the failure count on the
// failures tab.
func (m Model) renderTotals() string {
	t := m.tabs[m.active]
	if t.failures {
		return m.theme.StatusError.Render(fmt.Sprintf("%d group(s) produced no entry", len(m.failures)))
	}

	debits, credits := m.totals()
	entries := m.entryCount(t.kind)
	summary := fmt.Sprintf("%d entries  debits %s  credits %s",
		entries, model.FormatAmount(debits), model.FormatAmount(credits))

	if debits.Equal(credits) {
		return m.theme.StatusSuccess.Render("✓ ") + m.theme.Normal.Render(summary)
	}
	return m.theme.StatusError.Render("✗ ") + m.theme.Normal.Render(summary+"  out of balance")
}

func (m Model) entryCount(kind model.EntryKind) int {
	seen := make(map[string]struct{})
	for _, l := range m.lines {
		if l.Kind == kind {
			seen[l.JournalNumber] = struct{}{}
		}
	}
	return len(seen)
}

// String renders the current view without styling, for logs and tests.
func (m Model) String() string {
	return strings.TrimSpace(m.View())
}

package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/engine"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/reconcile"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// maxListed caps how many skipped rows a report prints.
const maxListed = 10

// RenderRunReport summarizes one derivation: entries per kind, failed
// groups, skipped rows, the reconciliation and the files written.
func RenderRunReport(res *engine.Result, files []string) string {
	var b strings.Builder

	b.WriteString(FormatTitle("Period " + res.Period.String()))
	b.WriteString("\n")

	for _, kind := range model.EntryKinds {
		entries := res.EntriesOf(kind)
		if len(entries) == 0 {
			continue
		}
		total := decimal.Zero
		for i := range entries {
			debits, _ := entries[i].Totals()
			total = total.Add(debits)
		}
		fmt.Fprintf(&b, "  %s %s %s\n",
			TableCellStyle.Width(12).Render(kind.Label()),
			TableCellStyle.Width(12).Render(fmt.Sprintf("%d entries", len(entries))),
			FormatExact(total))
	}
	if len(res.Entries) == 0 {
		b.WriteString("  " + SubtleStyle.Render("no entries") + "\n")
	}

	if len(res.Failures) > 0 {
		b.WriteString("\n")
		if res.Policy == engine.PolicyStrict {
			b.WriteString(FormatError(fmt.Sprintf("%d group(s) failed; strict policy rejected the run", len(res.Failures))))
		} else {
			b.WriteString(FormatWarning(fmt.Sprintf("%d group(s) failed and were left out", len(res.Failures))))
		}
		b.WriteString("\n")
		for _, f := range res.Failures {
			b.WriteString("  " + ErrorStyle.Render(ErrorIcon+" "+f.Error()) + "\n")
		}
	}

	if len(res.Skipped) > 0 {
		b.WriteString("\n")
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("%d row(s) skipped", len(res.Skipped))))
		b.WriteString("\n")
		for i, s := range res.Skipped {
			if i == maxListed {
				b.WriteString(SubtleStyle.Render(fmt.Sprintf("  ... and %d more", len(res.Skipped)-maxListed)) + "\n")
				break
			}
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("  %s %s %s: %s",
				s.Kind, model.FormatDate(s.Date), s.Symbol, s.Reason)) + "\n")
		}
	}

	b.WriteString("\n")
	if res.Reconciliation != nil {
		b.WriteString(RenderReconciliation(res.Reconciliation))
	} else {
		b.WriteString(FormatInfo("No statement summary; reconciliation skipped"))
	}
	b.WriteString("\n")

	if len(files) > 0 {
		b.WriteString("\n")
		for _, f := range files {
			b.WriteString(FormatSuccess("Wrote " + f))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderReconciliation shows each term of the change in investment value.
func RenderReconciliation(r *reconcile.Result) string {
	label := TableCellStyle.Width(18)
	line := func(name string, d decimal.Decimal) string {
		return label.Render(name) + FormatExact(d)
	}

	rows := []string{
		line("Income", r.Income),
		line("Holdings change", r.HoldingsChange),
		line("Purchases", r.Purchases),
		line("Sales", r.Sales),
		line("Expected", r.Expected),
		line("Stated", r.Stated),
		line("Delta", r.Delta),
		"",
	}
	if r.Reconciled {
		rows = append(rows, FormatSuccess("Reconciled within "+FormatExact(r.Tolerance)))
	} else {
		rows = append(rows, FormatWarning("Off by "+FormatExact(r.Delta.Abs())+" (advisory)"))
	}
	if !r.SummaryRollsUp {
		rows = append(rows, FormatWarning("Summary does not roll up: "+FormatExact(r.SummaryDelta)))
	}

	return RenderBox("Reconciliation "+r.Period, lipgloss.JoinVertical(lipgloss.Left, rows...))
}

var historyColumns = []struct {
	title string
	width int
}{
	{"Run", 10},
	{"Created", 18},
	{"Period", 9},
	{"Policy", 11},
	{"Entries", 8},
	{"Lines", 7},
	{"Failed", 7},
	{"Reconciled", 11},
	{"Expected", 14},
	{"Stated", 14},
}

// RenderHistory lists stored runs, newest first as given.
func RenderHistory(runs []model.RunRecord) string {
	if len(runs) == 0 {
		return FormatInfo("No runs recorded")
	}

	var b strings.Builder
	header := make([]string, len(historyColumns))
	for i, c := range historyColumns {
		header[i] = TableCellStyle.Width(c.width).Render(c.title)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, header...)))
	b.WriteString("\n")

	for i := range runs {
		r := &runs[i]
		cells := []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Period,
			r.Policy,
			fmt.Sprint(r.EntryCount),
			fmt.Sprint(r.LineCount),
			fmt.Sprint(r.FailedGroups),
			reconciledLabel(r.Reconciled),
			FormatOptionalMoney(r.Expected),
			FormatOptionalMoney(r.Stated),
		}
		for j, c := range cells {
			cells[j] = TableCellStyle.Width(historyColumns[j].width).Render(c)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderRun shows one stored run and its failures.
func RenderRun(r *model.RunRecord) string {
	label := TableCellStyle.Width(14)
	rows := []string{
		label.Render("Run") + r.ID,
		label.Render("Created") + r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		label.Render("Period") + r.Period,
		label.Render("Prefix") + r.Prefix,
		label.Render("Policy") + r.Policy,
		label.Render("Entries") + fmt.Sprintf("%d (%d lines)", r.EntryCount, r.LineCount),
		label.Render("Reconciled") + reconciledLabel(r.Reconciled),
		label.Render("Expected") + FormatOptionalMoney(r.Expected),
		label.Render("Stated") + FormatOptionalMoney(r.Stated),
	}
	for _, f := range r.Failures {
		rows = append(rows, ErrorStyle.Render(ErrorIcon+" "+f))
	}
	return RenderBox(ChartIcon+" Run "+shortID(r.ID), lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func reconciledLabel(ok *bool) string {
	switch {
	case ok == nil:
		return "n/a"
	case *ok:
		return "yes"
	default:
		return "no"
	}
}

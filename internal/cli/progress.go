package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/statement-ledger/internal/engine"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/schollz/progressbar/v3"
)

// PeriodProgress shows a bar while several periods are derived.
type PeriodProgress struct {
	bar *progressbar.ProgressBar
}

// NewPeriodProgress creates a bar for total periods. The bar is hidden when
// there is a single period or quiet is set.
func NewPeriodProgress(w io.Writer, total int, quiet bool) *PeriodProgress {
	if w == nil {
		w = os.Stderr
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Deriving periods"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetVisibility(!quiet && total > 1),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
	return &PeriodProgress{bar: bar}
}

// Func returns the callback to pass to Engine.RunPeriods.
func (p *PeriodProgress) Func() engine.ProgressFunc {
	return func(period model.Period, _, _ int) {
		p.bar.Describe("Derived " + period.String())
		_ = p.bar.Add(1)
	}
}

// Finish completes the bar.
func (p *PeriodProgress) Finish() {
	_ = p.bar.Finish()
}

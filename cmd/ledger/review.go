package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/tui"
	"github.com/Veraticus/statement-ledger/internal/tui/themes"
	"github.com/spf13/cobra"
)

func (a *app) reviewCmd() *cobra.Command {
	var (
		periods periodFlags
		src     sourceFlags
		runID   string
		theme   string
		strict  bool
		width   int
		height  int
		noHelp  bool
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Browse derived journal lines in an interactive table",
		Long: `Open the journal lines of a period, or of a recorded run, in a
full-screen table with one tab per journal file and a tab for failed groups.`,
		Example: `  ledger review --period 2025-01
  ledger review --run 0b4c1e2a-...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := a.ledgerConfig()
			if err != nil {
				return err
			}

			var (
				lines    []model.RunLine
				failures []string
				title    string
			)
			if runID != "" {
				store, err := openStorage(ctx, cfg)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()

				run, err := store.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				lines, err = store.GetRunLines(ctx, runID)
				if err != nil {
					return err
				}
				failures = run.Failures
				title = fmt.Sprintf("Run %s (%s)", run.ID, run.Period)
			} else {
				if periods.from == "" {
					return fmt.Errorf("either --period or --run is required")
				}
				eng, err := newEngine(cfg, strict)
				if err != nil {
					return err
				}
				ps, err := periods.periods()
				if err != nil {
					return err
				}
				stmts, err := a.loadStatements(ctx, cfg, ps, src)
				if err != nil {
					return err
				}
				for _, stmt := range stmts {
					res, err := eng.Run(ctx, stmt)
					if res == nil {
						return err
					}
					lines = append(lines, model.FlattenEntries("", res.Entries)...)
					for _, f := range res.Failures {
						failures = append(failures, f.Error())
					}
				}
				title = "Periods " + periods.from
				if periods.to != "" {
					title += " to " + periods.to
				}
			}

			return tui.Review(ctx, lines, failures, reviewOptions(title, theme, width, height, noHelp)...)
		},
	}

	cmd.Flags().StringVarP(&periods.from, "period", "p", "", "statement period (YYYY-MM)")
	cmd.Flags().StringVar(&periods.to, "to", "", "last period of a range (YYYY-MM)")
	src.register(cmd)
	cmd.Flags().StringVar(&runID, "run", "", "review a recorded run instead of deriving")
	cmd.Flags().StringVar(&theme, "theme", "default", "color theme ("+strings.Join(themes.Names(), ", ")+")")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject a period when any group fails")
	cmd.Flags().IntVar(&width, "width", 0, "initial table width before the terminal reports its size")
	cmd.Flags().IntVar(&height, "height", 0, "initial table height before the terminal reports its size")
	cmd.Flags().BoolVar(&noHelp, "no-help", false, "hide the key help footer")
	cmd.MarkFlagsMutuallyExclusive("run", "period")

	return cmd
}

// reviewOptions turns review flags into TUI options. A zero width or height
// keeps the default size.
func reviewOptions(title, theme string, width, height int, noHelp bool) []tui.Option {
	opts := []tui.Option{
		tui.WithTitle("📒 " + title),
		tui.WithTheme(themes.GetTheme(theme)),
	}
	if width > 0 && height > 0 {
		opts = append(opts, tui.WithSize(width, height))
	}
	if noHelp {
		opts = append(opts, tui.WithHelp(false))
	}
	return opts
}

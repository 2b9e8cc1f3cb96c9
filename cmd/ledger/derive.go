package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/statement-ledger/internal/cli"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/engine"
	"github.com/Veraticus/statement-ledger/internal/export"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) deriveCmd() *cobra.Command {
	var (
		periods periodFlags
		src     sourceFlags
		out     string
		workers int
		strict  bool
		save    bool
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive journal files for one or more statement periods",
		Long: `Derive dividend, purchase, sale and unrealized gain journal entries
from a period's statement records and write one CSV per entry type.

Groups that fail (an unknown basket, a symbol missing from the chart of
accounts) are reported. Under the strict policy a single failure rejects the
whole period and nothing is written for it.`,
		Example: `  # Derive January from the scrape files under paths.root
  ledger derive --period 2025-01

  # Derive a quarter, rejecting any period with failed groups
  ledger derive --period 2025-01 --to 2025-03 --strict --save

  # Derive straight from an OFX download
  ledger derive --period 2025-01 --ofx ~/Downloads/fidelity.qfx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := a.ledgerConfig()
			if err != nil {
				return err
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
			if out == "" {
				out = cfg.Paths.Out
			}

			var store service.Storage
			if save {
				store, err = openStorage(ctx, cfg)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx = handler.HandleInterrupts(ctx, "Journal files already written were kept; re-run ledger derive to finish.")
			defer handler.Stop()

			progress := cli.NewPeriodProgress(cmd.ErrOrStderr(), len(stmts), quiet)
			results, runErr := eng.RunPeriods(ctx, stmts, workers, progress.Func())
			progress.Finish()

			for _, r := range results {
				if r.Result == nil {
					continue
				}
				var files []string
				switch {
				case r.Err == nil:
					files, err = export.WriteFiles(out, eng.Prefix(), r.Period, r.Result.Entries)
					if err != nil {
						return err
					}
				case errors.Is(r.Err, common.ErrRunRejected):
					// a rejected period must not leave an earlier run's files behind
					if _, err := export.RemoveFiles(out, eng.Prefix(), r.Period); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRunReport(r.Result, files))

				if store != nil {
					id, err := saveRun(ctx, store, eng.Prefix(), r.Result)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Saved run "+id))
				}
			}
			if handler.WasInterrupted() {
				return fmt.Errorf("%w: derive stopped before every period finished", common.ErrInterrupted)
			}
			return runErr
		},
	}

	periods.register(cmd)
	src.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: paths.out)")
	cmd.Flags().IntVar(&workers, "workers", 0, "periods derived concurrently (0 = one per period)")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject a period when any group fails")
	cmd.Flags().BoolVar(&save, "save", false, "record the run in the history database")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")

	return cmd
}

// saveRun stores a result and its lines under a fresh run id.
func saveRun(ctx context.Context, store service.Storage, prefix string, res *engine.Result) (string, error) {
	id := uuid.NewString()
	rec := res.Record(id, prefix, time.Now().UTC())
	if err := store.SaveRun(ctx, &rec, model.FlattenEntries(id, res.Entries)); err != nil {
		return "", fmt.Errorf("failed to save run for %s: %w", res.Period, err)
	}
	return id, nil
}

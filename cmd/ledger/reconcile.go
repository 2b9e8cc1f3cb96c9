package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/statement-ledger/internal/cli"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/spf13/cobra"
)

func (a *app) reconcileCmd() *cobra.Command {
	var (
		periods        periodFlags
		failOnMismatch bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check derived figures against the statement summary",
		Long: `Recompute Income + HoldingsChange - Purchases + Sales for each period
and compare it with the change in investment value stated on the summary.
Nothing is written. A mismatch is advisory unless --fail-on-mismatch is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := a.ledgerConfig()
			if err != nil {
				return err
			}
			eng, err := newEngine(cfg, false)
			if err != nil {
				return err
			}
			ps, err := periods.periods()
			if err != nil {
				return err
			}
			stmts, err := a.loadStatements(ctx, cfg, ps, sourceFlags{})
			if err != nil {
				return err
			}

			var mismatches []error
			for _, stmt := range stmts {
				res, err := eng.Run(ctx, stmt)
				if err != nil && res == nil {
					return err
				}
				if res.Reconciliation == nil {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(stmt.Period.String()+": no summary, nothing to reconcile"))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderReconciliation(res.Reconciliation))
				if res.Mismatch != nil {
					mismatches = append(mismatches, res.Mismatch)
				}
			}

			if failOnMismatch && len(mismatches) > 0 {
				return errors.Join(mismatches...)
			}
			for _, m := range mismatches {
				common.LogWarn(ctx, "Reconciliation mismatch is advisory", common.Fields{"error": m.Error()})
			}
			return nil
		},
	}

	periods.register(cmd)
	cmd.Flags().BoolVar(&failOnMismatch, "fail-on-mismatch", false, "exit non-zero when a period does not reconcile")

	return cmd
}

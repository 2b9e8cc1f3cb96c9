package main

import (
	"fmt"

	"github.com/Veraticus/statement-ledger/internal/cli"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	var filter service.RunFilter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded derivation runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := a.ledgerConfig()
			if err != nil {
				return err
			}
			if filter.Period != "" {
				if _, err := model.ParsePeriod(filter.Period); err != nil {
					return err
				}
			}
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderHistory(runs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter.Period, "period", "p", "", "only runs for this period (YYYY-MM)")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "maximum runs to list")

	cmd.AddCommand(a.historyShowCmd())
	return cmd
}

func (a *app) historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := a.ledgerConfig()
			if err != nil {
				return err
			}
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRun(run))
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/Veraticus/statement-ledger/internal/cli"
	"github.com/Veraticus/statement-ledger/internal/config"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/plaid"
	"github.com/Veraticus/statement-ledger/internal/scrape"
	"github.com/spf13/cobra"
)

func (a *app) importOFXCmd() *cobra.Command {
	var (
		period string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import-ofx <file>",
		Short: "Convert an OFX/QFX investment download into scrape files",
		Long: `Parse an OFX or QFX investment statement and write its income, activity
and holdings records into the scrape layout under paths.root.

OFX carries no account summary; add the summary file from the statement
before deriving, or derive directly with 'ledger derive --ofx'.`,
		Example: `  ledger import-ofx ~/Downloads/fidelity_jan_2025.qfx --period 2025-01`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.ledgerConfig()
			if err != nil {
				return err
			}
			p, err := model.ParsePeriod(period)
			if err != nil {
				return err
			}

			layout := layoutFor(cfg)
			stmt, err := parseOFX(cmd.Context(), layout, args[0], p)
			if err != nil {
				return err
			}
			return writeImported(cmd, layout, stmt, dryRun)
		},
	}

	cmd.Flags().StringVarP(&period, "period", "p", "", "statement period (YYYY-MM)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would be written")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func (a *app) importPlaidCmd() *cobra.Command {
	var (
		periods periodFlags
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "import-plaid",
		Short: "Fetch investment transactions from Plaid into scrape files",
		Long: `Fetch investment transactions and holdings from Plaid for each period and
write them into the scrape layout under paths.root. Plaid only reports
current holdings, so holdings are most accurate for the latest period.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.ledgerConfig()
			if err != nil {
				return err
			}
			ps, err := periods.periods()
			if err != nil {
				return err
			}
			pcfg, err := config.LoadPlaidConfig(a.v)
			if err != nil {
				return err
			}
			client, err := plaid.NewClient(*pcfg)
			if err != nil {
				return fmt.Errorf("failed to create Plaid client: %w", err)
			}

			layout := layoutFor(cfg)
			stmts, err := fetchStatements(cmd.Context(), client, layout, ps)
			if err != nil {
				return err
			}
			for _, stmt := range stmts {
				if err := writeImported(cmd, layout, stmt, dryRun); err != nil {
					return err
				}
			}
			return nil
		},
	}

	periods.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would be written")

	return cmd
}

func writeImported(cmd *cobra.Command, layout scrape.Layout, stmt *model.Statement, dryRun bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%s: %d income, %d activity, %d holdings",
		stmt.Period, len(stmt.Income), len(stmt.Activity), len(stmt.Holdings))))

	if dryRun {
		fmt.Fprintln(out, cli.FormatWarning("Dry run, nothing written"))
		return nil
	}

	written, err := layout.Save(stmt)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintln(out, cli.FormatSuccess("Wrote "+path))
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Veraticus/statement-ledger/internal/cli"
	"github.com/Veraticus/statement-ledger/internal/config"
	"github.com/Veraticus/statement-ledger/internal/engine"
	"github.com/Veraticus/statement-ledger/internal/export"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/service"
	"github.com/Veraticus/statement-ledger/internal/sheets"
	"github.com/spf13/cobra"
)

// journalFile is one rendered journal file ready to publish.
type journalFile struct {
	name string
	rows [][]string
}

func (a *app) publishCmd() *cobra.Command {
	var (
		periods periodFlags
		src     sourceFlags
		strict  bool
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish derived journal files to Google Sheets",
		Long: `Derive the journal files for each period and write every file into its
own tab of a Google spreadsheet, replacing what the tab held before.

Authentication uses either a service account (sheets.service_account_path)
or an OAuth2 refresh token; run 'ledger auth sheets' to obtain one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := a.ledgerConfig()
			if err != nil {
				return err
			}
			scfg, err := config.LoadSheetsConfig(a.v)
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

			results, runErr := eng.RunPeriods(ctx, stmts, 0, nil)
			files := journalFiles(eng.Prefix(), results)
			if runErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(runErr.Error()))
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing to publish"))
				return runErr
			}

			if !yes {
				for _, f := range files {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d rows)\n", f.name, len(f.rows))
				}
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				ok, err := cli.Confirm(ctx, reader, cmd.OutOrStdout(), fmt.Sprintf("Publish %d file(s) to Google Sheets?", len(files)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Publish canceled"))
					return nil
				}
			}

			writer, err := sheets.NewWriter(ctx, *scfg, nil)
			if err != nil {
				return err
			}
			if err := publishFiles(ctx, writer, files, cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Spreadsheet "+writer.SpreadsheetID()))
			return runErr
		},
	}

	periods.register(cmd)
	src.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "reject a period when any group fails")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "publish without asking")

	return cmd
}

// journalFiles renders every successful result into per-kind files, in
// period then kind order.
func journalFiles(prefix string, results []engine.PeriodResult) []journalFile {
	var files []journalFile
	for _, r := range results {
		if r.Err != nil || r.Result == nil {
			continue
		}
		for _, kind := range model.EntryKinds {
			entries := r.Result.EntriesOf(kind)
			if len(entries) == 0 {
				continue
			}
			files = append(files, journalFile{
				name: export.FileName(prefix, r.Period, kind),
				rows: export.Rows(entries),
			})
		}
	}
	return files
}

func publishFiles(ctx context.Context, pub service.JournalPublisher, files []journalFile, out io.Writer) error {
	for _, f := range files {
		if err := pub.PublishJournal(ctx, f.name, export.Header, f.rows); err != nil {
			return fmt.Errorf("failed to publish %s: %w", f.name, err)
		}
		fmt.Fprintln(out, cli.FormatSuccess("Published "+f.name))
	}
	return nil
}

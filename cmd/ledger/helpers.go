package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/Veraticus/statement-ledger/internal/config"
	"github.com/Veraticus/statement-ledger/internal/engine"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/ofx"
	"github.com/Veraticus/statement-ledger/internal/plaid"
	"github.com/Veraticus/statement-ledger/internal/scrape"
	"github.com/Veraticus/statement-ledger/internal/service"
	"github.com/Veraticus/statement-ledger/internal/storage"
	"github.com/spf13/cobra"
)

// periodFlags is the --period/--to pair shared by most commands.
type periodFlags struct {
	from string
	to   string
}

func (p *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.from, "period", "p", "", "statement period (YYYY-MM)")
	cmd.Flags().StringVar(&p.to, "to", "", "last period of a range (YYYY-MM)")
	_ = cmd.MarkFlagRequired("period")
}

func (p *periodFlags) periods() ([]model.Period, error) {
	start, err := model.ParsePeriod(p.from)
	if err != nil {
		return nil, err
	}
	if p.to == "" {
		return []model.Period{start}, nil
	}
	end, err := model.ParsePeriod(p.to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("--to %s is before --period %s", end, start)
	}
	return model.PeriodRange(start, end), nil
}

// sourceFlags selects where statements come from. The scrape layout under
// paths.root is the default.
type sourceFlags struct {
	ofxFile string
	plaid   bool
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.ofxFile, "ofx", "", "read the statement from an OFX/QFX download instead of scrape files")
	cmd.Flags().BoolVar(&s.plaid, "plaid", false, "fetch the statement from Plaid instead of scrape files")
	cmd.MarkFlagsMutuallyExclusive("ofx", "plaid")
}

// newEngine builds the derivation engine, forcing strict policy when asked.
func newEngine(cfg *config.Config, strict bool) (*engine.Engine, error) {
	ecfg, err := cfg.Ledger.EngineConfig()
	if err != nil {
		return nil, err
	}
	if strict {
		ecfg.Policy = engine.PolicyStrict
	}
	return engine.New(ecfg)
}

func layoutFor(cfg *config.Config) scrape.Layout {
	return scrape.Layout{Root: cfg.Paths.Root, Prefix: cfg.Ledger.Prefix}
}

// loadStatements reads one statement per period from the selected source.
func (a *app) loadStatements(ctx context.Context, cfg *config.Config, periods []model.Period, src sourceFlags) ([]*model.Statement, error) {
	layout := layoutFor(cfg)

	switch {
	case src.ofxFile != "":
		if len(periods) != 1 {
			return nil, fmt.Errorf("--ofx reads a single period; drop --to")
		}
		stmt, err := parseOFX(ctx, layout, src.ofxFile, periods[0])
		if err != nil {
			return nil, err
		}
		return []*model.Statement{stmt}, nil

	case src.plaid:
		pcfg, err := config.LoadPlaidConfig(a.v)
		if err != nil {
			return nil, err
		}
		client, err := plaid.NewClient(*pcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Plaid client: %w", err)
		}
		return fetchStatements(ctx, client, layout, periods)

	default:
		stmts := make([]*model.Statement, 0, len(periods))
		for _, p := range periods {
			stmt, err := layout.Load(p)
			if err != nil {
				return nil, err
			}
			if stmt.PriorHoldings, err = priorHoldings(layout, p); err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		}
		return stmts, nil
	}
}

func parseOFX(ctx context.Context, layout scrape.Layout, path string, period model.Period) (*model.Statement, error) {
	prior, err := priorHoldings(layout, period)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // user-supplied download
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ofx.NewParser().ParseFile(ctx, f, ofx.Options{Period: period, PriorHoldings: prior})
}

func fetchStatements(ctx context.Context, source service.StatementSource, layout scrape.Layout, periods []model.Period) ([]*model.Statement, error) {
	stmts := make([]*model.Statement, 0, len(periods))
	for _, p := range periods {
		stmt, err := source.FetchStatement(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", p, err)
		}
		prior, err := priorHoldings(layout, p)
		if err != nil {
			return nil, err
		}
		model.FillBeginningValues(stmt.Holdings, prior)
		stmt.PriorHoldings = prior
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// priorHoldings reads the previous period's holdings scrape, if any, to
// supply beginning values.
func priorHoldings(layout scrape.Layout, p model.Period) ([]model.HoldingRecord, error) {
	path := layout.Path(scrape.SectionHoldings, p.Prev())
	f, err := os.Open(path) //nolint:gosec // path built from configured root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No prior holdings, positions treated as new", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open prior holdings: %w", err)
	}
	defer func() { _ = f.Close() }()

	holdings, err := scrape.ReadHoldings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return holdings, nil
}

// openStorage opens the run history database and applies migrations.
func openStorage(ctx context.Context, cfg *config.Config) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Package engine derives balanced journal entries from a statement and
// reconciles them against the statement summary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Veraticus/statement-ledger/internal/accounts"
	"github.com/Veraticus/statement-ledger/internal/aggregate"
	"github.com/Veraticus/statement-ledger/internal/basket"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/journal"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/reconcile"
	"github.com/shopspring/decimal"
)

// Policy decides what a run does when some groups fail.
type Policy string

// Run policies.
const (
	// PolicyEmitValid emits every entry that built cleanly and reports the rest.
	PolicyEmitValid Policy = "emit-valid"
	// PolicyStrict refuses to emit anything if any group failed.
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a policy name. Empty means emit-valid.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyEmitValid:
		return PolicyEmitValid, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("%w: policy %q (want emit-valid or strict)", common.ErrInvalidConfig, s)
	}
}

// Config holds the static tables and options shared by every run.
type Config struct {
	Tolerance            decimal.Decimal
	Baskets              *basket.Table
	Chart                *accounts.Chart
	NettedPattern        *regexp.Regexp
	SuffixBases          map[model.EntryKind]int
	Prefix               string
	CashAccount          string
	IncomeAccount        string
	Unbasketed           aggregate.UnbasketedPolicy
	Policy               Policy
	IncludeReinvestments bool
}

// Engine runs derivations. It holds only read-only configuration, so one
// Engine may serve concurrent runs for different periods.
type Engine struct {
	aggregator *aggregate.Aggregator
	builder    *journal.Builder
	validator  *reconcile.Validator
	bases      map[model.EntryKind]int
	policy     Policy
}

// New validates cfg and wires the pipeline.
func New(cfg Config) (*Engine, error) {
	policy, err := ParsePolicy(string(cfg.Policy))
	if err != nil {
		return nil, err
	}

	agg, err := aggregate.New(aggregate.Options{
		Table:                cfg.Baskets,
		NettedPattern:        cfg.NettedPattern,
		Unbasketed:           cfg.Unbasketed,
		IncludeReinvestments: cfg.IncludeReinvestments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	builder, err := journal.NewBuilder(journal.Config{
		Baskets:       cfg.Baskets,
		Chart:         cfg.Chart,
		Prefix:        cfg.Prefix,
		CashAccount:   cfg.CashAccount,
		IncomeAccount: cfg.IncomeAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create journal builder: %w", err)
	}

	validator, err := reconcile.New(cfg.Baskets, agg, cfg.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	// fail fast on bad ranges instead of on the first run
	if _, err := journal.NewSequencer(cfg.SuffixBases); err != nil {
		return nil, err
	}

	return &Engine{
		aggregator: agg,
		builder:    builder,
		validator:  validator,
		bases:      cfg.SuffixBases,
		policy:     policy,
	}, nil
}

// Prefix is the journal number prefix used for entries and file names.
func (e *Engine) Prefix() string {
	return e.builder.Prefix()
}

// Policy is the configured run policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Run derives one statement period. Each call owns a fresh sequencer.
//
// Under PolicyStrict any group failure rejects the run: the returned Result
// carries the failures but no entries, and the error wraps
// common.ErrRunRejected. Reconciliation mismatches never reject a run.
func (e *Engine) Run(ctx context.Context, stmt *model.Statement) (*Result, error) {
	if stmt == nil {
		return nil, common.ErrNoStatement
	}
	if err := stmt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statement %s: %w", stmt.Period, err)
	}

	logger := common.LoggerFrom(ctx).With("period", stmt.Period.String())
	logger.Info("Deriving journal entries",
		"income_rows", len(stmt.Income),
		"activity_rows", len(stmt.Activity),
		"holdings", len(stmt.Holdings))

	seq, err := journal.NewSequencer(e.bases)
	if err != nil {
		return nil, err
	}

	groups := e.aggregator.Statement(stmt)
	res := &Result{
		Period:  stmt.Period,
		Policy:  e.policy,
		Skipped: groups.Skipped,
	}
	for _, f := range groups.Failures {
		res.Failures = append(res.Failures, GroupFailure{Kind: f.Kind, Date: f.Date, Key: f.Key, Err: f.Err})
	}

	for _, kind := range model.EntryKinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kindGroups := groups.Groups(kind)
		for i := range kindGroups {
			g := &kindGroups[i]
			entry, err := e.builder.Build(g, seq)
			if err != nil {
				logger.Warn("Group failed",
					"kind", string(kind),
					"date", model.FormatDate(g.Date),
					"key", g.Key(),
					"error", err)
				res.Failures = append(res.Failures, GroupFailure{Kind: kind, Date: g.Date, Key: g.Key(), Err: err})
				continue
			}
			res.Entries = append(res.Entries, *entry)
		}
	}

	for _, s := range res.Skipped {
		logger.Debug("Row skipped", "kind", string(s.Kind), "symbol", s.Symbol, "reason", s.Reason)
	}

	e.reconcile(logger, stmt, res)

	if len(res.Failures) > 0 && e.policy == PolicyStrict {
		res.Entries = nil
		return res, fmt.Errorf("%w: %s has %d failed groups: %w", common.ErrRunRejected, stmt.Period, len(res.Failures), res.Err())
	}

	logger.Info("Derivation complete",
		"entries", len(res.Entries),
		"lines", res.LineCount(),
		"failed_groups", len(res.Failures))
	return res, nil
}

func (e *Engine) reconcile(logger *slog.Logger, stmt *model.Statement, res *Result) {
	if stmt.Summary == nil {
		logger.Warn("No summary record, reconciliation and unrealized entries skipped")
		return
	}

	rec, err := e.validator.Validate(stmt)
	res.Reconciliation = rec
	if err == nil {
		logger.Info("Reconciled", "expected", model.FormatAmount(rec.Expected), "stated", model.FormatAmount(rec.Stated))
		return
	}

	var mismatch *common.ReconciliationMismatchError
	if errors.As(err, &mismatch) {
		res.Mismatch = mismatch
		logger.Warn("Reconciliation mismatch",
			"expected", mismatch.Expected,
			"stated", mismatch.Stated,
			"delta", mismatch.Delta)
		return
	}
	logger.Error("Reconciliation failed", "error", err)
}

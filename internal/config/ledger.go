package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/accounts"
	"github.com/Veraticus/statement-ledger/internal/aggregate"
	"github.com/Veraticus/statement-ledger/internal/basket"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/engine"
	"github.com/Veraticus/statement-ledger/internal/journal"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/reconcile"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the whole configuration file.
type Config struct {
	Paths    Paths    `mapstructure:"paths"`
	Database Database `mapstructure:"database"`
	Logging  Logging  `mapstructure:"logging"`
	Ledger   Ledger   `mapstructure:"ledger"`
}

// Paths locates scrape input and journal output.
type Paths struct {
	Root string `mapstructure:"root"`
	Out  string `mapstructure:"out"`
}

// Database locates the run history database.
type Database struct {
	Path string `mapstructure:"path"`
}

// Logging configures slog.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Ledger holds the derivation tables and options.
type Ledger struct {
	Accounts             map[string]string `mapstructure:"accounts"`
	SuffixBases          map[string]int    `mapstructure:"suffix_bases"`
	Prefix               string            `mapstructure:"prefix"`
	CashAccount          string            `mapstructure:"cash_account"`
	IncomeAccount        string            `mapstructure:"income_account"`
	Unbasketed           string            `mapstructure:"unbasketed"`
	Policy               string            `mapstructure:"policy"`
	NettedPattern        string            `mapstructure:"netted_pattern"`
	Tolerance            string            `mapstructure:"tolerance"`
	ChartOfAccounts      string            `mapstructure:"chart_of_accounts"`
	MoneyMarket          []string          `mapstructure:"money_market"`
	UnbasketedAllowlist  []string          `mapstructure:"unbasketed_allowlist"`
	Baskets              []Basket          `mapstructure:"baskets"`
	IncludeReinvestments bool              `mapstructure:"include_reinvestments"`
}

// Basket is one configured basket.
type Basket struct {
	ID                string   `mapstructure:"id"`
	Name              string   `mapstructure:"name"`
	FMVAccount        string   `mapstructure:"fmv_account"`
	UnrealizedAccount string   `mapstructure:"unrealized_account"`
	Symbols           []string `mapstructure:"symbols"`
}

// SetDefaults registers defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.root", ".")
	v.SetDefault("paths.out", "journals")
	v.SetDefault("database.path", "~/.local/share/ledger/ledger.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("ledger.prefix", journal.DefaultPrefix)
	v.SetDefault("ledger.cash_account", journal.DefaultCashAccount)
	v.SetDefault("ledger.income_account", journal.DefaultIncomeAccount)
	v.SetDefault("ledger.unbasketed", string(aggregate.UnbasketedGroup))
	v.SetDefault("ledger.policy", string(engine.PolicyEmitValid))
	v.SetDefault("ledger.money_market", basket.DefaultMoneyMarket)
	v.SetDefault("ledger.tolerance", reconcile.DefaultTolerance.String())
	v.SetDefault("ledger.netted_pattern", aggregate.DefaultNettedPattern.String())
}

// Load unmarshals v, expands paths and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	cfg.Paths.Root = ExpandPath(cfg.Paths.Root)
	cfg.Paths.Out = ExpandPath(cfg.Paths.Out)
	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Ledger.ChartOfAccounts = ExpandPath(cfg.Ledger.ChartOfAccounts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that can be checked without building tables.
func (c *Config) Validate() error {
	if c.Paths.Root == "" {
		return fmt.Errorf("%w: paths.root is required", common.ErrMissingConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q (want console or json)", common.ErrInvalidConfig, c.Logging.Format)
	}
	if _, err := engine.ParsePolicy(c.Ledger.Policy); err != nil {
		return err
	}
	if _, err := aggregate.ParseUnbasketedPolicy(c.Ledger.Unbasketed); err != nil {
		return err
	}
	if len(c.Ledger.Baskets) == 0 {
		return fmt.Errorf("%w: ledger.baskets is empty", common.ErrMissingConfig)
	}
	if c.Ledger.ChartOfAccounts == "" && len(c.Ledger.Accounts) == 0 {
		return fmt.Errorf("%w: set ledger.chart_of_accounts or ledger.accounts", common.ErrMissingConfig)
	}
	return nil
}

// EngineConfig builds the immutable tables the engine runs on.
func (l *Ledger) EngineConfig() (engine.Config, error) {
	var cfg engine.Config

	baskets := make([]model.Basket, 0, len(l.Baskets))
	for _, b := range l.Baskets {
		baskets = append(baskets, model.Basket{
			ID:                strings.TrimSpace(b.ID),
			Name:              b.Name,
			FMVAccount:        b.FMVAccount,
			UnrealizedAccount: b.UnrealizedAccount,
			Symbols:           b.Symbols,
		})
	}
	table, err := basket.NewTable(baskets, l.MoneyMarket, l.UnbasketedAllowlist)
	if err != nil {
		return cfg, err
	}

	chart, err := l.chart()
	if err != nil {
		return cfg, err
	}

	tolerance := reconcile.DefaultTolerance
	if l.Tolerance != "" {
		tolerance, err = decimal.NewFromString(l.Tolerance)
		if err != nil || tolerance.IsNegative() {
			return cfg, fmt.Errorf("%w: ledger.tolerance %q", common.ErrInvalidConfig, l.Tolerance)
		}
	}

	var netted *regexp.Regexp
	if l.NettedPattern != "" {
		netted, err = regexp.Compile(l.NettedPattern)
		if err != nil {
			return cfg, fmt.Errorf("%w: ledger.netted_pattern: %v", common.ErrInvalidConfig, err)
		}
	}

	bases := make(map[model.EntryKind]int, len(l.SuffixBases))
	for k, v := range l.SuffixBases {
		kind, err := model.ParseEntryKind(strings.ToUpper(k))
		if err != nil {
			return cfg, fmt.Errorf("%w: ledger.suffix_bases: %v", common.ErrInvalidConfig, err)
		}
		bases[kind] = v
	}

	unbasketed, err := aggregate.ParseUnbasketedPolicy(l.Unbasketed)
	if err != nil {
		return cfg, err
	}
	policy, err := engine.ParsePolicy(l.Policy)
	if err != nil {
		return cfg, err
	}

	return engine.Config{
		Tolerance:            tolerance,
		Baskets:              table,
		Chart:                chart,
		NettedPattern:        netted,
		SuffixBases:          bases,
		Prefix:               l.Prefix,
		CashAccount:          l.CashAccount,
		IncomeAccount:        l.IncomeAccount,
		Unbasketed:           unbasketed,
		Policy:               policy,
		IncludeReinvestments: l.IncludeReinvestments,
	}, nil
}

// chart loads the CSV export and layers ledger.accounts over it.
func (l *Ledger) chart() (*accounts.Chart, error) {
	var overrides *accounts.Chart
	if len(l.Accounts) > 0 {
		var err error
		overrides, err = accounts.FromMap(l.Accounts)
		if err != nil {
			return nil, err
		}
	}
	if l.ChartOfAccounts == "" {
		return overrides, nil
	}

	base, err := accounts.LoadFile(l.ChartOfAccounts)
	if err != nil {
		return nil, err
	}
	return base.Merge(overrides), nil
}

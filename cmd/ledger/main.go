package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// app carries the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "📒 Brokerage statement to journal entry engine",
		Long: `ledger turns normalized brokerage statement records into balanced
double-entry journal files (dividends, purchases, sales and unrealized
gains) and cross-checks them against the statement's own summary.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/ledger/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = a.v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(a.deriveCmd())
	cmd.AddCommand(a.reconcileCmd())
	cmd.AddCommand(a.importOFXCmd())
	cmd.AddCommand(a.importPlaidCmd())
	cmd.AddCommand(a.historyCmd())
	cmd.AddCommand(a.reviewCmd())
	cmd.AddCommand(a.publishCmd())
	cmd.AddCommand(a.authCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status. An interrupted
// run exits like a shell-killed process.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, common.ErrInterrupted):
		return 130
	default:
		return 1
	}
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	// secrets for Plaid and Sheets usually live in .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	config.SetDefaults(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		a.v.AddConfigPath(filepath.Join(home, ".config", "ledger"))
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("LEDGER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	level, err := common.ParseLevel(a.v.GetString("logging.level"))
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, a.v.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

// ledgerConfig loads and validates the ledger configuration once per invocation.
func (a *app) ledgerConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledger %s\n", version)
		},
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/statement-ledger/internal/cli"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/config"
	"github.com/Veraticus/statement-ledger/internal/sheets"
	"github.com/spf13/cobra"
)

func (a *app) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}
	cmd.AddCommand(a.authSheetsCmd())
	return cmd
}

func (a *app) authSheetsCmd() *cobra.Command {
	var (
		tokenFile string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Obtain a Google Sheets OAuth2 refresh token",
		Long: `Run the Google OAuth2 consent flow in your browser and save the token.

Requires an OAuth client (Desktop or Web type) with http://localhost:8080/callback
as an authorized redirect URI. The client ID and secret come from
sheets.client_id / sheets.client_secret or GOOGLE_SHEETS_CLIENT_ID /
GOOGLE_SHEETS_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := firstSet(a.v.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
			clientSecret := firstSet(a.v.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("%w: Google Sheets client ID and secret are required", common.ErrMissingConfig)
			}

			if tokenFile == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("failed to get home directory: %w", err)
				}
				tokenFile = filepath.Join(home, ".config", "ledger", "sheets-token.json")
			}

			token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    config.ExpandPath(tokenFile),
				CallbackAddr: addr,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Google Sheets authentication complete"))
			if token.RefreshToken != "" {
				fmt.Fprintln(out, cli.FormatInfo("Add to your .env:"))
				fmt.Fprintf(out, "GOOGLE_SHEETS_REFRESH_TOKEN=%s\n", token.RefreshToken)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenFile, "token-file", "", "where to save the token (default: $HOME/.config/ledger/sheets-token.json)")
	cmd.Flags().StringVar(&addr, "addr", sheets.DefaultCallbackAddr, "callback listen address")

	return cmd
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

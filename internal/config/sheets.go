package config

import (
	"os"

	"github.com/Veraticus/statement-ledger/internal/plaid"
	"github.com/Veraticus/statement-ledger/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig builds the Sheets publisher configuration. Values under
// sheets.* (config file or LEDGER_SHEETS_* variables) win; GOOGLE_SHEETS_*
// variables fill whatever is left.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	config.ClientID = v.GetString("sheets.client_id")
	config.ClientSecret = v.GetString("sheets.client_secret")
	config.RefreshToken = v.GetString("sheets.refresh_token")
	config.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	if name := v.GetString("sheets.spreadsheet_name"); name != "" {
		config.SpreadsheetName = name
	}
	if v.IsSet("sheets.batch_size") {
		config.BatchSize = v.GetInt("sheets.batch_size")
	}
	if v.IsSet("sheets.formatting") {
		config.EnableFormatting = v.GetBool("sheets.formatting")
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, err
	}
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadPlaidConfig reads plaid.* settings, falling back to PLAID_* variables.
func LoadPlaidConfig(v *viper.Viper) (*plaid.Config, error) {
	config := &plaid.Config{
		ClientID:    firstNonEmpty(v.GetString("plaid.client_id"), os.Getenv("PLAID_CLIENT_ID")),
		Secret:      firstNonEmpty(v.GetString("plaid.secret"), os.Getenv("PLAID_SECRET")),
		Environment: firstNonEmpty(v.GetString("plaid.environment"), os.Getenv("PLAID_ENV"), "sandbox"),
		AccessToken: firstNonEmpty(v.GetString("plaid.access_token"), os.Getenv("PLAID_ACCESS_TOKEN")),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}

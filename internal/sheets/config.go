// Package sheets stores tables as tabs of a Google Sheets spreadsheet.
package sheets

import (
	"fmt"
	"os"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
)

// Config holds the spreadsheet location and credentials.
type Config struct {
	ClientID           string `mapstructure:"client_id"`
	ClientSecret       string `mapstructure:"client_secret"`
	RefreshToken       string `mapstructure:"refresh_token"`
	TokenFile          string `mapstructure:"token_file"`
	ServiceAccountPath string `mapstructure:"service_account_path"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	// Endpoint overrides the API base URL.
	Endpoint string `mapstructure:"endpoint"`
}

// LoadFromEnv fills unset fields from GOOGLE_SHEETS_* environment variables.
func (c *Config) LoadFromEnv() {
	setIfEmpty(&c.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	setIfEmpty(&c.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	setIfEmpty(&c.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	setIfEmpty(&c.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	setIfEmpty(&c.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
}

func setIfEmpty(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("%w: sheets.spreadsheet_id", common.ErrMissingConfig)
	}

	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("%w: no authentication method configured", common.ErrMissingConfig)
	}
	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	}
	return nil
}

package config

import (
	"github.com/spf13/viper"

	"github.com/Veraticus/the-labels-must-flow/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration from Viper and environment variables.
// It follows this precedence:
// 1. The sheets section of the config file
// 2. Direct environment variables (GOOGLE_SHEETS_*)
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	var config sheets.Config
	if err := v.UnmarshalKey("sheets", &config); err != nil {
		return nil, err
	}
	config.LoadFromEnv()

	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)
	config.TokenFile = ExpandPath(config.TokenFile)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

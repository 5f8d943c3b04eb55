package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/config"
	"github.com/Veraticus/the-labels-must-flow/internal/sheets"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
		Long:  `Authenticate with external services like Google Sheets.`,
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Print a URL to authenticate with Google in your browser
2. Receive the authorization code on a local callback server
3. Save the token to sheets.token_file for future use

You'll need to run this once to use the sheets backend with OAuth2. Service
accounts need no authentication step.`,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("listen", "localhost:8080", "Address of the local callback server")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	var cfg sheets.Config
	if err := viper.UnmarshalKey("sheets", &cfg); err != nil {
		return common.NewUserError("Invalid sheets configuration", err)
	}
	cfg.LoadFromEnv()

	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		cfg.ClientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		cfg.ClientSecret = flagSecret
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return common.NewUserError(
			"OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret in config or use --client-id and --client-secret",
			common.ErrMissingConfig)
	}

	if cfg.TokenFile == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		cfg.TokenFile = filepath.Join(configDir, "labels", "sheets-token.json")
	}
	cfg.TokenFile = config.ExpandPath(cfg.TokenFile)

	listen, _ := cmd.Flags().GetString("listen")
	if _, err := sheets.AuthenticateInteractive(cmd.Context(), cfg, listen); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatSuccess("Google Sheets authentication complete"))
	fmt.Fprintln(out, cli.FormatInfo("Set sheets.token_file to "+cfg.TokenFile+" if it is not configured yet"))
	return nil
}

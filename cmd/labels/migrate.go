package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/config"
	"github.com/Veraticus/the-labels-must-flow/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and create the ledger and review tables",
		Long: `Initialize or update the local database schema, then make sure the
configured ledger and review tables exist with every configured column.

With the sheets backend only the tables are checked; missing tabs are
added with a header row.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show the current schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")
	out := cmd.OutOrStdout()

	if status {
		return migrateStatus(cmd)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db != nil {
		slog.Info("Database migrated", "path", a.db.Path(), "version", storage.ExpectedSchemaVersion)
	}

	for _, t := range []struct {
		name   string
		create func() (bool, error)
	}{
		{a.cfg.Tables.Source, func() (bool, error) {
			return a.ensureTable(ctx, a.cfg.Tables.Source, a.cfg.SourceSchema.Fields())
		}},
		{a.cfg.Tables.Review, func() (bool, error) {
			return a.ensureTable(ctx, a.cfg.Tables.Review, a.cfg.ReviewSchema.Fields())
		}},
	} {
		created, err := t.create()
		if err != nil {
			return fmt.Errorf("failed to prepare table %s: %w", t.name, err)
		}
		if created {
			fmt.Fprintln(out, cli.FormatSuccess("Created table "+t.name))
		}
	}

	if a.cfg.Backend == config.BackendSQLite {
		fmt.Fprintln(out, cli.FormatSuccess("Database migrations completed"))
	} else {
		fmt.Fprintln(out, cli.FormatSuccess("Tables are ready"))
	}
	return nil
}

func migrateStatus(cmd *cobra.Command) error {
	cfg, err := config.LoadEngineConfig(viper.GetViper())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cfg.Backend != config.BackendSQLite {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Backend %s has no local schema", cfg.Backend)))
		return nil
	}

	db, err := storage.NewSQLiteStorage(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	version, err := db.SchemaVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Schema version %d of %d (%s)",
		version, storage.ExpectedSchemaVersion, db.Path())))
	return nil
}
